package entity

import (
	"encoding/json"
	"fmt"
)

// EncodeEmbeddings serializes embeddings as a JSON array holding one numeric
// array per frame. float32 values are written in their shortest exact form.
func EncodeEmbeddings(embeddings []FeatureVector) ([]byte, error) {
	if embeddings == nil {
		embeddings = []FeatureVector{}
	}
	data, err := json.Marshal(embeddings)
	if err != nil {
		return nil, fmt.Errorf("encode embeddings: %w", err)
	}
	return data, nil
}

func DecodeEmbeddings(data []byte) ([]FeatureVector, error) {
	var embeddings []FeatureVector
	if err := json.Unmarshal(data, &embeddings); err != nil {
		return nil, fmt.Errorf("decode embeddings: %w", err)
	}
	if embeddings == nil {
		embeddings = []FeatureVector{}
	}
	return embeddings, nil
}
