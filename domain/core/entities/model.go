package entities

// Model is a risk model a project can use to interpret node attributes.
type Model struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

var modelCatalog = []Model{
	{ID: "b9ff54e0-37cf-41d4-80ea-f3a9b1e3af74", Name: "Attacker Likelihood"},
	{ID: "f1644cb9-b2a5-4abb-813f-98d0277e42f2", Name: "Risk of Attack"},
	{ID: "bf4397f7-93ae-4502-a4a2-397f40f5cc49", Name: "EVITA"},
}

// Models returns the fixed model catalog
func Models() []Model {
	out := make([]Model, len(modelCatalog))
	copy(out, modelCatalog)
	return out
}

// FindModel looks a model up by id
func FindModel(id string) (Model, bool) {
	for _, m := range modelCatalog {
		if m.ID == id {
			return m, true
		}
	}
	return Model{}, false
}
