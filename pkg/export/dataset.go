package export

// Dataset defines tabular export content.
type Dataset struct {
	Headers []string
	Rows    []map[string]string
	// Widths holds relative column weights for paged layouts. Missing
	// headers weigh 1.
	Widths map[string]float64
}

func (d Dataset) values(row map[string]string) []string {
	out := make([]string, len(d.Headers))
	for i, h := range d.Headers {
		out[i] = row[h]
	}
	return out
}
