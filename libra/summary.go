package main

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	lgtable "github.com/charmbracelet/lipgloss/table"
	"github.com/samber/lo"
	"github.com/sarchlab/libra/model"
)

// summarize renders the solved bandwidth and cost of every dimension.
func summarize(p *problem, outcome *model.Outcome) (string, error) {
	bw := outcome.Bandwidths()

	costs, err := p.costModel.Breakdown(bw)
	if err != nil {
		return "", err
	}

	cellStyle := lipgloss.NewStyle().Padding(0, 1)
	headerStyle := lipgloss.NewStyle().Padding(0, 1).Bold(true).Reverse(true)
	table := lgtable.New().
		Border(lipgloss.RoundedBorder()).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == lgtable.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})

	table.Headers("Dim", "Topology", "NPUs", "Bandwidth (GB/s)", "Cost")

	for _, d := range p.ctx.Network().Dimensions() {
		table.Row(
			fmt.Sprintf("%d", d.Index+1),
			d.Block.Name(),
			fmt.Sprintf("%d", d.NPUs),
			fmt.Sprintf("%.2f", bw[d.Index]),
			fmt.Sprintf("%.2f", costs[d.Index]),
		)
	}

	table.Row("Total", "", fmt.Sprintf("%d", p.ctx.Network().TotalNPUsCount()),
		fmt.Sprintf("%.2f", lo.Sum(bw)), fmt.Sprintf("%.2f", lo.Sum(costs)))

	return fmt.Sprintf("%s\nEnd-to-end time: %.2f ns\nNetwork cost: %.2f\nObjective: %g",
		table.String(), outcome.EndToEndTime, outcome.NetworkCost, outcome.Objective), nil
}
