// pkg/loader/registry.go
package loader

import (
	"fmt"

	"github.com/survstats/survpipe/pkg/model"
)

// Schema returns the declared schema for a dataset identifier, failing with
// ErrDataUnavailable for identifiers the registry does not know
func Schema(name string) (*model.DatasetSchema, error) {
	schema, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("%w: no schema registered for %q", model.ErrDataUnavailable, name)
	}
	return schema, nil
}

// RegisteredDatasets returns the known dataset identifiers
func RegisteredDatasets() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	return names
}

// registry declares the known datasets. Factor levels are listed with the
// reference level first; the modeling layer drops the reference when it
// expands dummies.
var registry = map[string]*model.DatasetSchema{
	"prostate": prostateSchema,
}

// prostateSchema describes the Byar & Greene prostate cancer trial:
// 502 patients randomized to placebo or one of three estrogen doses,
// followed for all-cause mortality with cause of death recorded.
var prostateSchema = &model.DatasetSchema{
	Name:   "prostate",
	Source: "prostate.csv",
	Variables: []model.Variable{
		{Name: "patno", Kind: model.KindNumeric, Doc: "patient number"},
		{Name: "stage", Kind: model.KindNumeric, Doc: "disease stage (3 or 4)"},
		{Name: "rx", Kind: model.KindFactor, Doc: "treatment arm",
			Levels: []string{
				"placebo",
				"0.2 mg estrogen",
				"1.0 mg estrogen",
				"5.0 mg estrogen",
			}},
		{Name: "dtime", Kind: model.KindNumeric, Doc: "months of follow-up"},
		{Name: "status", Kind: model.KindFactor, Doc: "vital status / cause of death",
			Levels: []string{
				"alive",
				"dead - prostatic ca",
				"dead - heart or vascular",
				"dead - cerebrovascular",
				"dead - pulmonary embolus",
				"dead - other ca",
				"dead - respiratory disease",
				"dead - other specific non-ca",
				"dead - unspecified non-ca",
				"dead - unknown cause",
			}},
		{Name: "age", Kind: model.KindNumeric, Doc: "age in years"},
		{Name: "wt", Kind: model.KindNumeric, Doc: "weight index: wt(kg) - ht(cm) + 200"},
		{Name: "pf", Kind: model.KindFactor, Doc: "performance status",
			Levels: []string{
				"normal activity",
				"in bed < 50% daytime",
				"in bed > 50% daytime",
				"confined to bed",
			}},
		{Name: "hx", Kind: model.KindNumeric, Doc: "history of cardiovascular disease"},
		{Name: "sbp", Kind: model.KindNumeric, Doc: "systolic blood pressure / 10"},
		{Name: "dbp", Kind: model.KindNumeric, Doc: "diastolic blood pressure / 10"},
		{Name: "ekg", Kind: model.KindFactor, Doc: "electrocardiogram category",
			Levels: []string{
				"normal",
				"benign",
				"rhythmic disturb & electrolyte ch",
				"heart block or conduction def",
				"heart strain",
				"old MI",
				"recent MI",
			}},
		{Name: "hg", Kind: model.KindNumeric, Doc: "serum hemoglobin (g/100ml)"},
		{Name: "sz", Kind: model.KindNumeric, Doc: "size of primary tumor (cm^2)"},
		{Name: "sg", Kind: model.KindNumeric, Doc: "combined stage and histologic grade"},
		{Name: "ap", Kind: model.KindNumeric, Doc: "serum prostatic acid phosphatase"},
		{Name: "bm", Kind: model.KindNumeric, Doc: "bone metastases"},
	},
}
