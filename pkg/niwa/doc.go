// Package niwa implements queries to NIWA to retrieve tide data.  Tide data
// is requested as a forward window of high/low extrema per coordinate (see
// PredictionQuery).  A successful query returns an ordered list of
// predictions with time and height. All times are UTC.
package niwa
