package pipeline

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/matzehuels/mltn2v/pkg/cache"
	"github.com/matzehuels/mltn2v/pkg/layer"
)

// NetworkHash returns a content hash of the network. Two networks with the
// same layers in the same order, each with the same nodes and edges, hash
// equally. Nodes are hashed on their own because isolated nodes start walks
// but appear in no edge.
func NetworkHash(net *layer.Network) string {
	type doc struct {
		Name     string       `json:"name"`
		Directed bool         `json:"directed"`
		Nodes    []string     `json:"nodes"`
		Edges    []layer.Edge `json:"edges"`
	}
	docs := make([]*doc, net.Len())
	for i, l := range net.Layers() {
		if l == nil {
			continue
		}
		docs[i] = &doc{Name: l.Name, Directed: l.Directed, Nodes: l.Nodes(), Edges: l.Edges()}
	}
	h, _ := cache.HashJSON(docs)
	return h
}

// Manifest is the run summary written to run.json.
type Manifest struct {
	RunID         string            `json:"run_id"`
	FinishedAt    time.Time         `json:"finished_at"`
	NetworkHash   string            `json:"network_hash"`
	Options       Options           `json:"options"`
	Layers        []string          `json:"layers"`
	LoadFailures  []string          `json:"load_failures,omitempty"`
	LayerFailures []string          `json:"layer_failures,omitempty"`
	Corpora       map[string]string `json:"corpora"`
	Outputs       map[string]string `json:"outputs,omitempty"`
	Stats         Stats             `json:"stats"`
	CacheInfo     CacheInfo         `json:"cache"`
}

// NewManifest summarizes a finished run.
func NewManifest(res *Result, opts Options) Manifest {
	m := Manifest{
		RunID:       res.RunID,
		FinishedAt:  time.Now().UTC(),
		NetworkHash: res.NetworkHash,
		Options:     opts,
		Corpora:     make(map[string]string, len(res.Corpora)),
		Stats:       res.Stats,
		CacheInfo:   res.CacheInfo,
	}
	if res.Network != nil {
		for _, l := range res.Network.Layers() {
			m.Layers = append(m.Layers, l.Name)
		}
	}
	for _, f := range res.LoadFailures {
		m.LoadFailures = append(m.LoadFailures, f.Error())
	}
	for _, f := range res.LayerFailures {
		m.LayerFailures = append(m.LayerFailures, f.Error())
	}
	for w, p := range res.Corpora {
		m.Corpora[wKey(w)] = p
	}
	if len(res.Outputs) > 0 {
		m.Outputs = make(map[string]string, len(res.Outputs))
		for w, p := range res.Outputs {
			m.Outputs[wKey(w)] = p
		}
	}
	return m
}

// WriteManifest writes the manifest of res to path.
func WriteManifest(path string, res *Result, opts Options) error {
	data, err := json.MarshalIndent(NewManifest(res, opts), "", "  ")
	if err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	return nil
}

func wKey(w float64) string { return fmt.Sprintf("%g", w) }
