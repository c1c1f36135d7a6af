// Package report summarizes a recording made by cachesim.
package report

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/sarchlab/cachesim/datarecording"
	"github.com/sarchlab/cachesim/tracing"
)

// SetActivity is what happened in one set during the recorded run.
type SetActivity struct {
	SetID      int    `json:"set_id"`
	Accesses   uint64 `json:"accesses"`
	Misses     uint64 `json:"misses"`
	Evictions  uint64 `json:"evictions"`
	Writebacks uint64 `json:"writebacks"`
}

// Report is the content of one recording.
type Report struct {
	ExecInfo []datarecording.ExecInfo `json:"exec_info"`
	Summary  []tracing.SummaryEntry   `json:"summary"`
	HotSets  []SetActivity            `json:"hot_sets"`
}

// Build reads a recording and keeps the top sets with the most misses. A
// negative top keeps every set.
func Build(
	ctx context.Context,
	reader datarecording.DataReader,
	top int,
) (Report, error) {
	reader.MapTable(datarecording.ExecInfoTable, datarecording.ExecInfo{})
	reader.MapTable(tracing.SummaryTable, tracing.SummaryEntry{})

	r := Report{}

	execInfo, _, err := reader.Query(ctx, datarecording.ExecInfoTable,
		datarecording.QueryParams{})
	if err != nil {
		return Report{}, fmt.Errorf("reading exec info: %w", err)
	}

	for _, e := range execInfo {
		r.ExecInfo = append(r.ExecInfo, *e.(*datarecording.ExecInfo))
	}

	summary, _, err := reader.Query(ctx, tracing.SummaryTable,
		datarecording.QueryParams{})
	if err != nil {
		return Report{}, fmt.Errorf("reading summary: %w", err)
	}

	for _, e := range summary {
		r.Summary = append(r.Summary, *e.(*tracing.SummaryEntry))
	}

	r.HotSets, err = hotSets(ctx, reader, top)
	if err != nil {
		return Report{}, err
	}

	return r, nil
}

// hotSets counts per set inside the database. Hit, Evicted and WroteBack are
// stored as 0 or 1.
func hotSets(
	ctx context.Context,
	reader datarecording.DataReader,
	top int,
) ([]SetActivity, error) {
	if top == 0 {
		return []SetActivity{}, nil
	}

	groups, err := reader.Group(ctx, tracing.AccessTable,
		datarecording.GroupParams{
			GroupBy: "SetID",
			Sums:    []string{"1 - Hit", "Evicted", "WroteBack"},
			OrderBy: "Sum0 DESC, GroupKey",
			Limit:   max(top, 0),
		})
	if err != nil {
		return nil, fmt.Errorf("reading accesses: %w", err)
	}

	sets := make([]SetActivity, 0, len(groups))
	for _, g := range groups {
		sets = append(sets, SetActivity{
			SetID:      int(g.Key),
			Accesses:   g.Count,
			Misses:     uint64(g.Sums[0]),
			Evictions:  uint64(g.Sums[1]),
			Writebacks: uint64(g.Sums[2]),
		})
	}

	return sets, nil
}

// WriteJSON writes the report as indented JSON.
func (r Report) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	return enc.Encode(r)
}

// WriteText writes the report as aligned tables.
func (r Report) WriteText(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	for _, e := range r.ExecInfo {
		fmt.Fprintf(tw, "%s\t%s\n", e.Property, e.Value)
	}

	for _, s := range r.Summary {
		fmt.Fprintln(tw)
		fmt.Fprintf(tw, "Cache\t%d B, %d-way, %d sets, %s, %s\n",
			s.ByteSize, s.WayAssociativity, s.NumSets,
			s.ReplacementPolicy, s.WritePolicy)
		fmt.Fprintf(tw, "Miss Ratio\t%.6f\n", s.MissRatio)
		fmt.Fprintf(tw, "Hits\t%d\n", s.Hits)
		fmt.Fprintf(tw, "Misses\t%d\n", s.Misses)
		fmt.Fprintf(tw, "Reads\t%d\n", s.Reads)
		fmt.Fprintf(tw, "Writes\t%d\n", s.Writes)
		fmt.Fprintf(tw, "Evictions\t%d\n", s.Evictions)
		fmt.Fprintf(tw, "Writebacks\t%d\n", s.Writebacks)
	}

	if len(r.HotSets) > 0 {
		fmt.Fprintln(tw)
		fmt.Fprintln(tw, "Set\tAccesses\tMisses\tEvictions\tWritebacks")

		for _, s := range r.HotSets {
			fmt.Fprintf(tw, "%d\t%d\t%d\t%d\t%d\n",
				s.SetID, s.Accesses, s.Misses, s.Evictions, s.Writebacks)
		}
	}

	return tw.Flush()
}
