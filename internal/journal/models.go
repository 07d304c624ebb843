package journal

import (
	"encoding/json"
	"time"
)

type Operation string

const (
	OpGenerateImage Operation = "generate_image"
	OpGenerateVideo Operation = "generate_video"
	OpMultishot     Operation = "multishot"
	OpUpscale       Operation = "upscale"
)

type Status string

const (
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
)

// Entry is one costly backend operation.
type Entry struct {
	ID        string
	SessionID string
	Operation Operation
	SourceID  int64
	Prompt    string
	Count     int
	Credits   int
	Status    Status
	Detail    string
	Metadata  Metadata
	Timestamp time.Time
}

// Metadata carries the settings an operation ran with.
type Metadata struct {
	Camera      string  `json:"camera,omitempty"`
	Lens        string  `json:"lens,omitempty"`
	FocalLength string  `json:"focal_length,omitempty"`
	AspectRatio string  `json:"aspect_ratio,omitempty"`
	Strength    float64 `json:"strength,omitempty"`
	References  int     `json:"references,omitempty"`
	ResultURL   string  `json:"result_url,omitempty"`
	ProxyIDs    []int64 `json:"proxy_ids,omitempty"`
}

func (m *Metadata) ToJSON() string {
	data, _ := json.Marshal(m)
	return string(data)
}

func ParseMetadata(data string) Metadata {
	var m Metadata
	if data != "" {
		json.Unmarshal([]byte(data), &m)
	}
	return m
}

type CreditSummary struct {
	Credits    int
	ShotCount  int
	EntryCount int
}

type OperationSummary struct {
	Operation Operation
	Credits   int
	ShotCount int
	Entries   int
}
