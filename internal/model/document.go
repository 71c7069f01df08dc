package model

// DocumentMeta describes one downloadable regulatory document for a drug,
// as returned by the documents-metadata endpoint. It is transient and never
// persisted on its own.
type DocumentMeta struct {
	ID       FlexString `json:"id"`
	FileName string     `json:"nazev"`
	DocType  string     `json:"typ"`
}

// Document is one stored regulatory document. A row is written only after
// the binary content was downloaded successfully, and is immutable once
// created.
type Document struct {
	ID       int64
	SUKLCode string
	DocID    string
	DocType  string
	FileName string
	PDFData  []byte
	PDFSize  int
}
