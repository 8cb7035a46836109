package types

// AnalyzeRequest carries an image captured by a browser. Image is either a
// data URI or bare base64.
type AnalyzeRequest struct {
	Image string `json:"image"`
}
