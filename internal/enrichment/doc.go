// Package enrichment attaches external context to accidents: road-safety
// infrastructure counts from an Overpass API and observed weather from the
// Open-Meteo archive.
//
// Every HTTP call is rate limited, retried with exponential backoff on 429
// and 5xx answers, and memoized. A failed lookup only nulls the enrichment
// of the accident it was made for.
package enrichment
