// Package wire encodes records into the game client's positional text format.
//
// A record is a flat key:value list. Records in a section are separated by
// '|', response sections by '#'. Song records use "~|~" inside a record and
// "~:~" between records; comment records use '~'.
//
// Every encoder here is a pure function of its input. Anything time-dependent
// takes the reference time as a parameter.
package wire
