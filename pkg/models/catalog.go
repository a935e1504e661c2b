package models

import "encoding/json"

// AppIntegration is a read-only catalog entry describing a third-party service.
type AppIntegration struct {
	ID          int64             `json:"Id"`
	Name        string            `json:"name"`
	Icon        string            `json:"icon"`
	Category    string            `json:"category"`
	Description string            `json:"description"`
	Color       string            `json:"color"`
	Triggers    []json.RawMessage `json:"triggers"`
	Actions     []json.RawMessage `json:"actions"`
	AuthType    string            `json:"authType"`
}

// Template is a reusable blueprint of nodes. Template nodes carry no position.
type Template struct {
	ID          int64    `json:"Id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Category    string   `json:"category"`
	Icon        string   `json:"icon"`
	UsageCount  int      `json:"usageCount"`
	Apps        []string `json:"apps"`
	Nodes       []*Node  `json:"nodes"`
}
