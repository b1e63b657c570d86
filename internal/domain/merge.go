package domain

// MergeTracts left-joins vehicle and income rows onto tract geometries by
// normalized GEOID. Every geometry row produces exactly one record. Tracts
// without a vehicle row get zero buckets and HasVehicleData=false; tracts
// without an income row keep nil income fields. When an attribute table
// repeats a GEOID the first row wins.
func MergeTracts(state string, geoms []TractGeometry, vehicles []VehicleRow, income []IncomeRow) []TractRecord {
	vehicleByID := make(map[string]VehicleRow, len(vehicles))
	for _, v := range vehicles {
		id := NormalizeGEOID(v.GEOID)
		if _, dup := vehicleByID[id]; !dup {
			vehicleByID[id] = v
		}
	}
	incomeByID := make(map[string]IncomeRow, len(income))
	for _, r := range income {
		id := NormalizeGEOID(r.GEOID)
		if _, dup := incomeByID[id]; !dup {
			incomeByID[id] = r
		}
	}

	out := make([]TractRecord, 0, len(geoms))
	for _, g := range geoms {
		id := NormalizeGEOID(g.GEOID)
		statefp := g.StateFP
		if statefp == "" {
			statefp = StateFPFromGEOID(id)
		}
		rec := TractRecord{
			GEOID:       id,
			State:       state,
			StateFP:     statefp,
			CentroidLon: g.CentroidLon,
			CentroidLat: g.CentroidLat,
			Geometry:    g.Geometry,
			LandAreaM2:  g.LandAreaM2,
		}
		if v, ok := vehicleByID[id]; ok {
			rec.VehicleBuckets = v.Buckets
			rec.HasVehicleData = true
		}
		rec.HouseholdsWithVehicles = SumBuckets(rec.VehicleBuckets)
		if r, ok := incomeByID[id]; ok {
			rec.TotalPopulation = r.TotalPopulation
			rec.MedianIncome = r.MedianIncome
			rec.PerCapitaIncome = r.PerCapitaIncome
		}
		out = append(out, rec)
	}
	return out
}

// DuplicateGEOIDs returns normalized ids that appear more than once.
func DuplicateGEOIDs(ids []string) []string {
	seen := make(map[string]int, len(ids))
	var dups []string
	for _, id := range ids {
		id = NormalizeGEOID(id)
		seen[id]++
		if seen[id] == 2 {
			dups = append(dups, id)
		}
	}
	return dups
}
