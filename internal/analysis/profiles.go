package analysis

import (
	"sort"

	"github.com/KaramelBytes/datalens-cli/internal/table"
)

const (
	maxNumericProfiles     = 12
	maxCategoricalProfiles = 8
	maxTopValues           = 5
	iqrMultiplier          = 1.5
)

func buildNumericProfiles(t *table.Table, numeric []string) []NumericProfile {
	profiles := []NumericProfile{}
	if t.Empty() {
		return profiles
	}
	rows := float64(t.Rows())
	for _, name := range numeric {
		if len(profiles) == maxNumericProfiles {
			break
		}
		col, _ := t.Column(name)
		valid := validValues(numericSeries(col))
		if len(valid) == 0 {
			continue
		}
		sorted := make([]float64, len(valid))
		copy(sorted, valid)
		sort.Float64s(sorted)

		q1 := quantile(sorted, 0.25)
		q3 := quantile(sorted, 0.75)
		iqr := q3 - q1
		outliers := 0
		if iqr > 0 {
			lower, upper := q1-iqrMultiplier*iqr, q3+iqrMultiplier*iqr
			for _, v := range sorted {
				if v < lower || v > upper {
					outliers++
				}
			}
		}
		mean, std := meanStd(valid)
		n := float64(len(valid))
		profiles = append(profiles, NumericProfile{
			Column:       name,
			Count:        len(valid),
			MissingPct:   pct(rows-n, rows),
			Min:          sorted[0],
			Q1:           q1,
			Median:       quantile(sorted, 0.5),
			Mean:         mean,
			Q3:           q3,
			Max:          sorted[len(sorted)-1],
			StdDev:       std,
			OutlierCount: outliers,
			OutlierPct:   pct(float64(outliers), n),
		})
	}
	return profiles
}

func buildCategoricalProfiles(t *table.Table, categorical []string) []CategoricalProfile {
	profiles := []CategoricalProfile{}
	if t.Empty() {
		return profiles
	}
	rows := float64(t.Rows())
	for _, name := range categorical {
		if len(profiles) == maxCategoricalProfiles {
			break
		}
		col, _ := t.Column(name)
		distinct := map[string]bool{}
		counts := map[string]*labelCount{}
		nonNull := 0
		for i := 0; i < col.Len(); i++ {
			v := col.Value(i)
			if v.IsNull() {
				continue
			}
			nonNull++
			distinct[v.String()] = true
			// Spellings that clean to the same label share one entry.
			label := cleanLabel(v)
			lc := counts[label]
			if lc == nil {
				lc = &labelCount{label: label, first: i}
				counts[label] = lc
			}
			lc.count++
		}
		if nonNull == 0 {
			continue
		}
		ranked := rankCounts(counts)
		if len(ranked) > maxTopValues {
			ranked = ranked[:maxTopValues]
		}
		top := make([]TopValue, 0, len(ranked))
		for _, lc := range ranked {
			top = append(top, TopValue{
				Label: lc.label,
				Count: lc.count,
				Pct:   pct(float64(lc.count), rows),
			})
		}
		profiles = append(profiles, CategoricalProfile{
			Column:      name,
			UniqueCount: len(distinct),
			MissingPct:  pct(rows-float64(nonNull), rows),
			TopValues:   top,
		})
	}
	return profiles
}
