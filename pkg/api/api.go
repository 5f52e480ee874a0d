// Package api contains the JSON request/response structs of the Stable
// Diffusion WebUI endpoints the factory consumes.
package api

import "encoding/json"

// Txt2ImgRequest is the body of POST /sdapi/v1/txt2img.
type Txt2ImgRequest struct {
	Prompt         string  `json:"prompt"`
	NegativePrompt string  `json:"negative_prompt"`
	Width          int     `json:"width"`
	Height         int     `json:"height"`
	Steps          int     `json:"steps"`
	CFGScale       float64 `json:"cfg_scale"`
	// Seed -1 asks the service to pick one.
	Seed        int64  `json:"seed"`
	SamplerName string `json:"sampler_name"`
}

// Txt2ImgResponse is the response of POST /sdapi/v1/txt2img.
type Txt2ImgResponse struct {
	// Images are base64-encoded PNGs; the first one is the result.
	Images     []string        `json:"images"`
	Parameters json.RawMessage `json:"parameters,omitempty"`
	// Info is itself a JSON document, encoded as a string.
	Info string `json:"info"`
}

// GenerationInfo is the decoded Txt2ImgResponse.Info.
type GenerationInfo struct {
	Seed     json.Number `json:"seed"`
	AllSeeds []int64     `json:"all_seeds,omitempty"`
	Width    int         `json:"width,omitempty"`
	Height   int         `json:"height,omitempty"`
	Sampler  string      `json:"sampler_name,omitempty"`
}

// SDModel is one entry of GET /sdapi/v1/sd-models.
type SDModel struct {
	Title     string `json:"title"`
	ModelName string `json:"model_name"`
	Hash      string `json:"hash,omitempty"`
	Filename  string `json:"filename,omitempty"`
}

// Options is the subset of GET /sdapi/v1/options the factory reads.
type Options struct {
	SDModelCheckpoint string `json:"sd_model_checkpoint"`
}

// ErrorResponse is the error body returned by the WebUI on failures.
type ErrorResponse struct {
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
	Errors string `json:"errors,omitempty"`
}
