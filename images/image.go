// Package images - encoded image handling for the preprocessing pipeline.
package images

// Image represents an encoded image with a format, data, width, and height.
type Image struct {
	// The format of the image.
	Format ImageFormat `json:"format" yaml:"format"`
	// The encoded data of the image.
	Data []byte `json:"data" yaml:"data"`
	// The width of the image.
	Width int `json:"width" yaml:"width"`
	// The height of the image.
	Height int `json:"height" yaml:"height"`
}

// MIME returns the media type of the image data.
func (i Image) MIME() string {
	return i.Format.MIME()
}
