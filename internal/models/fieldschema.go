package models

import "strings"

// DocumentFieldPrefix namespaces field keys that address attached-file
// slots rather than payload values.
const DocumentFieldPrefix = "document_"

// FieldSchema declares the addressable fields of one application kind: the
// payload field keys, the attached-document slots, their human labels, and
// the multipart form-name mapping used by applicant resubmission.
type FieldSchema struct {
	Kind      ApplicationKind
	Fields    []string
	Documents []string
	Labels    map[string]string
	FormNames map[string]string
}

// SchemaFor returns the declared field schema for the given kind.
func SchemaFor(kind ApplicationKind) (FieldSchema, bool) {
	schema, ok := fieldSchemas[kind]
	return schema, ok
}

var fieldSchemas = map[ApplicationKind]FieldSchema{
	KindDirectHire:      directHireSchema,
	KindBalikManggagawa: balikManggagawaSchema,
	KindGovToGov:        govToGovSchema,
}

// LabelFor maps a field key to its human label. Unmapped keys fall back to
// title-casing the snake_case key, stripping the document prefix first.
func (s FieldSchema) LabelFor(key string) string {
	if label, ok := s.Labels[key]; ok {
		return label
	}
	return titleCaseKey(strings.TrimPrefix(key, DocumentFieldPrefix))
}

// KnownPayloadField reports whether the key is a declared payload field.
func (s FieldSchema) KnownPayloadField(key string) bool {
	for _, f := range s.Fields {
		if f == key {
			return true
		}
	}
	return false
}

// KnownDocumentType reports whether the document type has a declared slot.
func (s FieldSchema) KnownDocumentType(docType string) bool {
	for _, d := range s.Documents {
		if d == docType {
			return true
		}
	}
	return false
}

// FieldKeyForForm translates a multipart form part name into a field key.
// Unmapped names pass through unchanged.
func (s FieldSchema) FieldKeyForForm(name string) string {
	if key, ok := s.FormNames[name]; ok {
		return key
	}
	return name
}

// IsDocumentField reports whether the key addresses an attached-file slot.
func IsDocumentField(key string) bool {
	return strings.HasPrefix(key, DocumentFieldPrefix)
}

// DocumentType strips the document prefix from a field key.
func DocumentType(key string) string {
	return strings.TrimPrefix(key, DocumentFieldPrefix)
}

// DocumentFieldKey builds the field key addressing a document slot.
func DocumentFieldKey(docType string) string {
	return DocumentFieldPrefix + docType
}

func titleCaseKey(key string) string {
	parts := strings.Split(key, "_")
	for i, part := range parts {
		if part == "" {
			continue
		}
		parts[i] = strings.ToUpper(part[:1]) + part[1:]
	}
	return strings.Join(parts, " ")
}
