// Package stepper sequences a four-coil unipolar stepper (28BYJ-48 on a
// ULN2003 board) through its half-step table.
package stepper

// Coils is the number of coil outputs per row.
const Coils = 4

// HalfStepSequence is the eight-row half-step table. Each row has one or two
// adjacent coils energised and consecutive rows differ by one coil.
var HalfStepSequence = [8][Coils]bool{
	{true, false, false, false},
	{true, true, false, false},
	{false, true, false, false},
	{false, true, true, false},
	{false, false, true, false},
	{false, false, true, true},
	{false, false, false, true},
	{true, false, false, true},
}

// Rows is the length of HalfStepSequence.
const Rows = len(HalfStepSequence)

// wrapRow maps any row index onto [0, Rows).
func wrapRow(i int) int {
	return ((i % Rows) + Rows) % Rows
}
