package domain

import "time"

// KeyPrefix namespaces all store keys written by this service.
const KeyPrefix = "ragchat:"

// Document is a registered source file. Chunks reference it by ID.
type Document struct {
	ID        string
	Filename  string
	CreatedAt time.Time
}

// ConvertedDocument is the converter output: extracted text plus source info.
type ConvertedDocument struct {
	Filename string
	Format   string
	Text     string
}

// IsValid reports whether the conversion produced usable text.
func (d *ConvertedDocument) IsValid() bool {
	if d == nil {
		return false
	}
	for _, r := range d.Text {
		if r != ' ' && r != '\t' && r != '\n' && r != '\r' {
			return true
		}
	}
	return false
}
