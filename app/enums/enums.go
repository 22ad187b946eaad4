// Package enums provides type-safe enumeration types shared by the witness, the store and the web API.
//
// This package uses code generation via go-pkgz/enum. The enum types are defined as unexported
// integer types in this file, and the go:generate directives produce the exported types with
// String, Parse, Scan/Value and MarshalText/UnmarshalText methods in *_enum.go files.
//
// The lowercase string form ("started", "succeeded", "failed") exists only at the persistence
// and transport boundary; in memory a status is always the typed value.
//
// To regenerate the enum types after modifications:
//
//	go generate ./app/enums
package enums

//go:generate go run github.com/go-pkgz/enum@latest -type jobStatus -lower

// jobStatus represents the lifecycle status of a job.
// This is an unexported type used only as input for the code generator.
// Use the exported JobStatus type and its constants in actual code.
type jobStatus int

const (
	jobStatusStarted jobStatus = iota
	jobStatusSucceeded
	jobStatusFailed
)
