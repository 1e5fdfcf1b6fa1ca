package label

import (
	"encoding/base64"
	"os"
)

const (
	dataURIPrefix = "data:image/png;base64,"

	// fallbackLogoPNG is a 1x1 transparent PNG.
	fallbackLogoPNG = "iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAQAAAC1HAwCAAAAC0lEQVR42mNkYAAAAAYAAjCB0C8AAAAASUVORK5CYII="

	// FallbackLogoDataURI replaces the logo whenever it cannot be read.
	FallbackLogoDataURI = dataURIPrefix + fallbackLogoPNG
)

// Logo is the outcome of loading the label logo. When Fallback is set, DataURI
// is FallbackLogoDataURI and Err holds the read failure.
type Logo struct {
	DataURI  string
	Fallback bool
	Err      error
}

// LoadLogo reads the image at path and encodes it as a PNG data URI. Read
// failures of any kind produce the fallback logo instead of an error.
func LoadLogo(readFile func(string) ([]byte, error), path string) Logo {
	if readFile == nil {
		readFile = os.ReadFile
	}
	raw, err := readFile(path)
	if err != nil {
		return Logo{DataURI: FallbackLogoDataURI, Fallback: true, Err: err}
	}
	return Logo{DataURI: dataURIPrefix + base64.StdEncoding.EncodeToString(raw)}
}
