package format

import (
	"encoding/json"
	"strings"
)

// The inference request family (hosted-inference backends with a single
// prompt string and generation parameters).

const (
	inferenceCue          = "\n\nFormatted text:"
	inferenceMaxNewTokens = 2048
	inferenceTemperature  = 0.3
)

func buildInferenceBody(instruction, text string) map[string]any {
	return map[string]any{
		"inputs": instruction + "\n\n" + text + inferenceCue,
		"parameters": map[string]any{
			"max_new_tokens":   inferenceMaxNewTokens,
			"temperature":      inferenceTemperature,
			"return_full_text": false,
		},
	}
}

// parseInferenceResponse returns the first element's generated text, or the
// raw decoded body when the shape is unrecognized.
func parseInferenceResponse(raw []byte) string {
	var shaped []struct {
		GeneratedText string `json:"generated_text"`
	}
	if err := json.Unmarshal(raw, &shaped); err == nil && len(shaped) > 0 {
		return shaped[0].GeneratedText
	}
	return string(raw)
}

// inferenceLoadingError inspects an inference response for the "model still
// loading" condition and returns the estimated retry delay in seconds.
func inferenceLoadingError(raw []byte) (estimatedSecs float64, loading bool) {
	var body struct {
		Error         string  `json:"error"`
		EstimatedTime float64 `json:"estimated_time"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return 0, false
	}
	if strings.Contains(strings.ToLower(body.Error), "loading") {
		return body.EstimatedTime, true
	}
	return 0, false
}
