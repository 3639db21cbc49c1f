// Package datras implements a client for the ICES/CIEM DATRAS web service.
//
// The service exposes trawl-survey datasets (haul metadata, length
// frequencies, age-based data, litter assessments) through SOAP operations
// keyed by survey name, year, and quarter. Callers pass lists for each
// dimension; the client expands the cartesian product of the lists and
// issues one sequential request per combination, concatenating whatever
// comes back into a single table.
//
// Downloads are best-effort: a failed combination is logged and counted but
// never aborts the remaining combinations. Because HL downloads in
// particular are bulky, the number of combinations a single call may expand
// to is capped by a configurable download limit, which callers can override
// per call.
package datras
