// Package main provides the entry point for the gridstudy CLI.
//
// gridstudy runs a two-snapshot integration study on a low-voltage grid: the
// unmodified grid with placeholder generators, then the grid with new PV
// setpoints, storage loads and a moved tap changer. Both snapshots are solved,
// checked against the operating limits and rendered.
//
// Usage:
//
//	gridstudy study
//	gridstudy study --cosim --mat-file activePowerData.mat
//	gridstudy history
//
// See --help for all available options.
package main

func main() {
	Execute()
}
