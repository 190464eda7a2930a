package cache

// Keyer derives cache keys for pipeline products.
type Keyer interface {
	// WalksKey identifies the walk corpus of a network.
	WalksKey(networkHash string, opts WalksKeyOpts) string

	// EmbeddingKey identifies the embeddings trained on one corpus.
	EmbeddingKey(corpusHash string, opts EmbeddingKeyOpts) string
}

// WalksKeyOpts are the parameters that change generated walks.
type WalksKeyOpts struct {
	WValues           []float64 `json:"w"`
	WalkLength        int       `json:"nbsize"`
	SamplesPerNode    int       `json:"n_samples"`
	P                 float64   `json:"p"`
	Q                 float64   `json:"q"`
	MaxForcedSwitches int       `json:"max_switches"`
	Seed              uint64    `json:"seed"`
}

// EmbeddingKeyOpts are the parameters that change trained embeddings.
type EmbeddingKeyOpts struct {
	Trainer    string `json:"trainer"`
	Dimensions int    `json:"d"`
	Window     int    `json:"window"`
	Epochs     int    `json:"epochs"`
	CBOW       bool   `json:"cbow"`
}

// DefaultKeyer produces keys of the form "<kind>:<sha256>".
type DefaultKeyer struct{}

// NewDefaultKeyer returns the standard keyer.
func NewDefaultKeyer() Keyer {
	return DefaultKeyer{}
}

// WalksKey implements [Keyer].
func (DefaultKeyer) WalksKey(networkHash string, opts WalksKeyOpts) string {
	return hashKey("walks", networkHash, opts)
}

// EmbeddingKey implements [Keyer].
func (DefaultKeyer) EmbeddingKey(corpusHash string, opts EmbeddingKeyOpts) string {
	return hashKey("embedding", corpusHash, opts)
}
