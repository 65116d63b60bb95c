// Package config defines the format-agnostic configuration model for a graph
// run and the HCL loader that produces it.
//
// The config.Model is the single source of truth for graph construction: the
// loader applies defaults and rejects structural mistakes (unknown node
// kinds, duplicate names, missing requirements), so downstream code consumes
// settled values only.
package config
