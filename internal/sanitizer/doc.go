// Package sanitizer normalizes raw daily progress reports into canonical
// records.
//
// Malformed input never fails: dates, costs and manpower counts degrade to a
// default value and the record index is listed in the problem set, while free
// text is reduced to printable Latin-1 with collapsed whitespace. Cleaning is
// a fixed point, so sanitizing an already clean record changes nothing.
//
// Records are never dropped. Callers that want to exclude flagged rows (the
// PDF export does) filter with domain.SanitizeResult.Unflagged.
package sanitizer
