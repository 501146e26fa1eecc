package orchestrator

import (
	"context"
	"os"
	"path/filepath"

	"github.com/ctessum/geom/op"

	"github.com/aethera-eia/aethera/internal/errs"
	"github.com/aethera-eia/aethera/internal/geo"
)

// adminCountryField is the attribute name AETHERA's administrative
// boundary dataset is expected to carry the ISO 3166-1 alpha-3 country
// code under.
const adminCountryField = "iso3"

// resolveCountry resolves a run's country: explicit config wins;
// else infer from the AOI centroid against administrative boundaries;
// else the empty string ("null"). Any lookup failure along the
// inference path degrades to "", never fatal.
func (o *Orchestrator) resolveCountry(ctx context.Context, st *runState) string {
	if st.req.Config.Country != "" {
		return st.req.Config.Country
	}

	fs, ok, err := o.loadFeatureSet(ctx, "admin_boundaries", "", false, adminCountryField, []string{adminCountryField}, st.aoiNorm)
	if err != nil || !ok {
		return ""
	}

	centroid := geo.AOIPolygonal(st.aoiNorm).Centroid()
	for _, f := range fs.Features {
		within, err := op.Within(centroid, f.Geom)
		if err != nil || !within {
			continue
		}
		if code := f.Attr(adminCountryField); code != "" {
			return code
		}
	}
	return ""
}

// loadRuleSetFile reads the country's rule set file from dir, trying
// the ".yaml", ".yml" and ".json" extensions in turn
// "UTF-8 YAML/JSON" rule-set file contract.
func loadRuleSetFile(dir, country string) ([]byte, error) {
	for _, ext := range []string{".yaml", ".yml", ".json"} {
		raw, err := os.ReadFile(filepath.Join(dir, country+ext))
		if err == nil {
			return raw, nil
		}
		if !os.IsNotExist(err) {
			return nil, errs.Wrap(errs.LegalRuleParseError, "legal_rule_load", err)
		}
	}
	return nil, errs.New(errs.DatasetMissing, "legal_rule_load", "no rule set file for country "+country)
}
