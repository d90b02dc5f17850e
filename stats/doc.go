// Package stats models per-district statistic rows and joins them with the
// district map: which columns to show, how to render each row, which rows
// belong to a clicked district and which fields can be filtered on.
//
// Rows keep the key order of the store's JSON objects; every row carries a
// District name and a store rowId next to its statistic fields.
package stats
