// Package domain holds the hail risk data model and the pure transformations
// applied to it: tract attribute merging, regional assembly, density metrics,
// hail report parsing and risk aggregation. Nothing in this package performs
// I/O; adapters produce the inputs and persist the outputs.
//
// # Source Data
//
// Hail reports come from the NOAA Storm Prediction Center (SPC) filtered daily
// hail feed, a CSV with a header row:
//
//	Time,Size,Location,County,State,Lat,Lon,Comments
//	1510,125,8 ESE Chappel,San Saba,TX,31.02,-98.44,1.25 inch hail reported. (SJT)
//
// Only Lat and Lon are required. Rows where either is empty or unparseable are
// dropped before the spatial join. Comments are kept verbatim for display.
//
// Tract geometries come from TIGER/Line tract files, one per state, with the
// attributes GEOID, STATEFP, ALAND (land area in square meters) and
// INTPTLON/INTPTLAT (internal point, used as the tract centroid).
//
// Tract attributes come from ACS extracts keyed by tract_geoid. The vehicle
// table carries eight household buckets, households_with_1_vehicle through
// households_with_8_or_more_vehicles. The income table carries
// total_population, median_income and per_capita_income.
//
// # GEOID
//
// A tract GEOID is 11 digits: 2 state FIPS + 3 county FIPS + 6 tract. Numeric
// spreadsheet exports lose leading zeros ("1001020100" for Alabama) and ACS
// exports prefix a summary level ("1400000US29001950100"). [NormalizeGEOID]
// undoes both so geometry and attribute tables join on the same key.
//
// # Derived Fields
//
// Fields are computed once, in order:
//
//	households_with_vehicles = sum of the 8 buckets
//	land_area_km2            = ALAND / 1,000,000
//	car_ownership_density    = households_with_vehicles / land_area_km2
//	population_density       = total_population / land_area_km2
//	hail_reports             = points strictly inside the tract
//	hail_risk_score          = hail_reports * car_ownership_density
//
// Density is undefined for tracts with zero or missing land area. The
// [DensityPolicy] decides whether such tracts are dropped or zero-filled; in
// either case no NaN or infinite value leaves this package.
//
// # Regional Clip
//
// Missouri tracts are limited to those west of U.S. Highway 63, approximated
// by an internal-point longitude threshold of -92.3. The rule is a [ClipRule]
// value, not a literal inside [Assemble], so the threshold and direction can be
// replaced or tested independently.
package domain
