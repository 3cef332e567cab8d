package storage

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/san-kum/vescwheel/internal/dynamo"
)

var sampleHeader = []string{
	"time", "reference", "position", "velocity_sens", "effort_sens",
	"duty", "reset", "fault", "theta", "omega",
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// WriteSamples writes one CSV row per tick.
func WriteSamples(w io.Writer, samples []dynamo.Sample) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(sampleHeader); err != nil {
		return err
	}

	for _, s := range samples {
		theta, omega := "", ""
		if len(s.Plant) > 1 {
			theta, omega = formatFloat(s.Plant[0]), formatFloat(s.Plant[1])
		}
		row := []string{
			formatFloat(s.Time),
			formatFloat(s.Reference),
			formatFloat(s.Position),
			formatFloat(s.VelocitySens),
			formatFloat(s.EffortSens),
			formatFloat(s.Duty),
			strconv.FormatBool(s.Reset),
			strconv.FormatBool(s.Fault),
			theta,
			omega,
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

// ReadSamples parses what WriteSamples produced. Plant columns may be
// empty for runs recorded against hardware.
func ReadSamples(r io.Reader) ([]dynamo.Sample, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(sampleHeader)

	records, err := cr.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) < 2 {
		return []dynamo.Sample{}, nil
	}

	samples := make([]dynamo.Sample, 0, len(records)-1)
	for i, rec := range records[1:] {
		var s dynamo.Sample
		floats := []*float64{&s.Time, &s.Reference, &s.Position, &s.VelocitySens, &s.EffortSens, &s.Duty}
		for j, dst := range floats {
			v, err := strconv.ParseFloat(rec[j], 64)
			if err != nil {
				return nil, fmt.Errorf("row %d column %s: %w", i+1, sampleHeader[j], err)
			}
			*dst = v
		}
		if s.Reset, err = strconv.ParseBool(rec[6]); err != nil {
			return nil, fmt.Errorf("row %d column reset: %w", i+1, err)
		}
		if s.Fault, err = strconv.ParseBool(rec[7]); err != nil {
			return nil, fmt.Errorf("row %d column fault: %w", i+1, err)
		}
		if rec[8] != "" && rec[9] != "" {
			theta, err1 := strconv.ParseFloat(rec[8], 64)
			omega, err2 := strconv.ParseFloat(rec[9], 64)
			if err1 != nil || err2 != nil {
				return nil, fmt.Errorf("row %d: bad plant state", i+1)
			}
			s.Plant = dynamo.State{theta, omega}
		}
		samples = append(samples, s)
	}
	return samples, nil
}
