package main

import (
	"cmp"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"

	"pixivdl/internal/artwork"
	"pixivdl/internal/pipeline"
)

// outcomeOrder lists outcomes in the order they are reported.
var outcomeOrder = []artwork.Outcome{
	artwork.OutcomeOK,
	artwork.OutcomeSkipDuplicate,
	artwork.OutcomeSkipDuplicateNoWait,
	artwork.OutcomeSkipLocalLarger,
	artwork.OutcomeSkipBlacklist,
	artwork.OutcomeSkipOlder,
	artwork.OutcomeCheckDownload,
	artwork.OutcomeNotOK,
	artwork.OutcomeKeyboardInterrupt,
}

func renderOutcomes(counts map[artwork.Outcome]int) string {
	rows := make([][]string, 0, len(counts))
	for _, outcome := range outcomeOrder {
		if n := counts[outcome]; n > 0 {
			rows = append(rows, []string{outcome.String(), strconv.Itoa(n)})
		}
	}
	return renderTable([]string{"Outcome", "Works"}, rows, []columnAlignment{alignLeft, alignRight})
}

func renderErrors(out io.Writer, entries []pipeline.ErrorEntry) {
	if len(entries) == 0 {
		return
	}
	slices.SortStableFunc(entries, func(a, b pipeline.ErrorEntry) int {
		return compareIDs(a.ID, b.ID)
	})
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, []string{e.Type, e.ID, strconv.Itoa(e.Code), e.Message})
	}
	fmt.Fprintln(out, renderTable([]string{"Type", "ID", "Code", "Error"}, rows,
		[]columnAlignment{alignLeft, alignRight, alignRight, alignLeft}))
}

// compareIDs orders numeric ids numerically and everything else lexically.
func compareIDs(a, b string) int {
	ai, aerr := strconv.ParseInt(a, 10, 64)
	bi, berr := strconv.ParseInt(b, 10, 64)
	if aerr == nil && berr == nil {
		return cmp.Compare(ai, bi)
	}
	return strings.Compare(a, b)
}
