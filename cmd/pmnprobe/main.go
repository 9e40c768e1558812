// Package main provides the entry point for the pmnprobe CLI.
//
// pmnprobe reads a table of metabolite names, searches each one on PlantCyc
// in a real browser and records whether the result page lists pathways.
//
// Usage:
//
//	pmnprobe run --input metabolites.csv
//	pmnprobe check glucose
//
// See --help for all available options.
package main

func main() {
	Execute()
}
