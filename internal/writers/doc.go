// Package writers turns methylation calls into serialized output.
//
// Writers own all presentation knowledge (TSV columns, JSONL rows). JSONL
// goes through pkg/api (v1) for a stable wire format.
package writers
