// Package catalog compiles the protocol collections listed in a YAML
// manifest.
//
// Each enabled collection is parsed, validated together with the manifest's
// import documents, and optionally generated. Collections run in parallel;
// one failing collection does not stop the others. Disabled collections are
// skipped with their recorded reason and are never parsed, so known-broken
// upstream descriptions cannot fail a run.
package catalog
