// Package kvrepo implements the application repositories on top of any
// abstractions.Store driver.
//
// Layout (PK / SK):
//
//	PROJECTS       / PROJECT#<id>
//	PROJECT#<pid>  / TREE#<tid>
//	PROJECT#<pid>  / CONFIG#<cid>
//	NODE#<id>      / METADATA
//	TREE#<tid>     / HISTORY#<zero padded version>
package kvrepo

import (
	"fmt"
	"time"

	"github.com/bytedance/sonic"

	"treeservice/domain/core/entities"
	"treeservice/domain/core/valueobjects"
	"treeservice/infrastructure/persistence/abstractions"
)

const (
	entityProject  = "PROJECT"
	entityTree     = "TREE"
	entityConfig   = "CONFIG"
	entityNode     = "NODE"
	entityRevision = "REVISION"

	projectsPartition = "PROJECTS"
	projectPrefix     = "PROJECT#"
	treePrefix        = "TREE#"
	configPrefix      = "CONFIG#"
	nodePrefix        = "NODE#"
	historyPrefix     = "HISTORY#"
	nodeSortKey       = "METADATA"
)

// codec is shared by every repository; ConfigStd keeps map keys sorted so
// stored bytes are stable.
var codec = sonic.ConfigStd

func projectKey(id string) abstractions.Key {
	return abstractions.Key{PK: projectsPartition, SK: projectPrefix + id}
}

func treeKey(projectID, treeID string) abstractions.Key {
	return abstractions.Key{PK: projectPrefix + projectID, SK: treePrefix + treeID}
}

func configKey(projectID, configID string) abstractions.Key {
	return abstractions.Key{PK: projectPrefix + projectID, SK: configPrefix + configID}
}

func nodeKey(id string) abstractions.Key {
	return abstractions.Key{PK: nodePrefix + id, SK: nodeSortKey}
}

func revisionKey(treeID string, version int) abstractions.Key {
	return abstractions.Key{PK: treePrefix + treeID, SK: fmt.Sprintf("%s%020d", historyPrefix, version)}
}

type nodeRecord struct {
	ID                 string                  `json:"id"`
	Title              string                  `json:"title"`
	Description        string                  `json:"description"`
	ModelAttributes    valueobjects.Attributes `json:"modelAttributes"`
	ConditionAttribute string                  `json:"conditionAttribute"`
	Children           []string                `json:"children"`
}

func newNodeRecord(n *entities.Node) nodeRecord {
	return nodeRecord{
		ID:                 n.ID().String(),
		Title:              n.Title(),
		Description:        n.Description(),
		ModelAttributes:    n.ModelAttributes(),
		ConditionAttribute: n.ConditionAttribute(),
		Children:           n.ChildIDs(),
	}
}

func (r nodeRecord) toEntity() *entities.Node {
	return entities.ReconstructNode(r.ID, r.Title, r.Description, r.ModelAttributes, r.ConditionAttribute, r.Children)
}

type treeRecord struct {
	ID         string    `json:"id"`
	ProjectID  string    `json:"projectId"`
	Title      string    `json:"title"`
	RootNodeID string    `json:"rootNodeId"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

type projectRecord struct {
	ID               string    `json:"id"`
	Title            string    `json:"title"`
	OwnerID          string    `json:"ownerId"`
	SelectedConfigID string    `json:"selectedConfigId"`
	SelectedModelID  string    `json:"selectedModelId"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

type configRecord struct {
	ID         string                  `json:"id"`
	ProjectID  string                  `json:"projectId"`
	Name       string                  `json:"name"`
	Attributes valueobjects.Attributes `json:"attributes"`
	UpdatedAt  time.Time               `json:"updatedAt"`
}

type revisionRecord struct {
	TreeID     string       `json:"treeId"`
	Version    int          `json:"version"`
	Title      string       `json:"title"`
	RootNodeID string       `json:"rootNodeId"`
	Nodes      []nodeRecord `json:"nodes"`
	CreatedAt  time.Time    `json:"createdAt"`
}

func encode(key abstractions.Key, entityType string, v interface{}) (abstractions.Item, error) {
	data, err := codec.Marshal(v)
	if err != nil {
		return abstractions.Item{}, fmt.Errorf("encode %s: %w", entityType, err)
	}
	return abstractions.Item{Key: key, EntityType: entityType, Data: data}, nil
}

func decode(item abstractions.Item, v interface{}) error {
	if err := codec.Unmarshal(item.Data, v); err != nil {
		return fmt.Errorf("decode %s %s/%s: %w", item.EntityType, item.Key.PK, item.Key.SK, err)
	}
	return nil
}
