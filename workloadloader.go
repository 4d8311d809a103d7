package libra

import (
	"bufio"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/samber/lo"
)

// The number of whitespace-separated fields of a layer line in the ASTRA-sim
// 1.0 workload format.
const astraSimLayerFields = 12

// A WorkloadLoader loads a workload in the ASTRA-sim 1.0 text format. Each
// layer line carries 12 fields: name, a reserved field, then (compute time,
// comm type, comm size) for the forward, input-gradient and weight-gradient
// phases, and the update time.
//
// The two-line ASTRA-sim header (parallelism policy, layer count) is optional.
type WorkloadLoader struct {
	// The path of the workload file.
	Path string
}

// Load loads the workload.
func (l *WorkloadLoader) Load() (*Workload, error) {
	lines, err := l.readLines()
	if err != nil {
		return nil, err
	}

	lines, expected, err := l.stripHeader(lines)
	if err != nil {
		return nil, err
	}

	layers := make([]Layer, 0, len(lines))
	for _, line := range lines {
		layer, err := ParseLayerLine(line)
		if err != nil {
			return nil, err
		}

		layers = append(layers, layer)
	}

	if expected >= 0 && expected != len(layers) {
		return nil, workloadErrorf(len(layers),
			"header announces %d layers but the file has", expected)
	}

	return NewWorkload(layers), nil
}

func (l *WorkloadLoader) readLines() ([]string, error) {
	absPath, err := filepath.Abs(l.Path)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(absPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, workloadErrorf(l.Path, "workload file does not exist")
		}

		return nil, errors.Wrapf(err, "open workload %s", l.Path)
	}
	defer func() {
		closeErr := f.Close()
		if closeErr != nil {
			panic(closeErr)
		}
	}()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}

	if err := scanner.Err(); err != nil {
		return nil, errors.Wrapf(err, "read workload %s", l.Path)
	}

	return lo.Filter(lines, func(line string, _ int) bool {
		return strings.TrimSpace(line) != ""
	}), nil
}

// stripHeader removes the ASTRA-sim header if present and returns the number
// of layers it announces, or -1 without a header.
func (l *WorkloadLoader) stripHeader(lines []string) ([]string, int, error) {
	if len(lines) < 2 || len(strings.Fields(lines[0])) != 1 {
		return lines, -1, nil
	}

	count, err := strconv.Atoi(strings.TrimSpace(lines[1]))
	if err != nil {
		return nil, 0, workloadErrorf(lines[1], "invalid layer count in workload header")
	}

	return lines[2:], count, nil
}

// ParseLayerLine parses one layer line of the ASTRA-sim 1.0 format.
func ParseLayerLine(line string) (Layer, error) {
	fields := strings.Fields(line)
	if len(fields) != astraSimLayerFields {
		return Layer{}, workloadErrorf(strings.TrimSpace(line),
			"layer does not follow the ASTRA-sim 1.0 workload format")
	}

	var phases [3]Phase
	for i := range phases {
		start := 2 + 3*i

		phase, err := parsePhase(fields[start : start+3])
		if err != nil {
			return Layer{}, err
		}

		phases[i] = phase
	}

	return NewLayer(fields[0], phases[0], phases[1], phases[2]), nil
}

// parsePhase parses [compute time, comm type, comm size].
func parsePhase(fields []string) (Phase, error) {
	computeTime, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return Phase{}, workloadErrorf(fields, "invalid phase info")
	}

	comm, err := ParseCollective(fields[1])
	if err != nil {
		return Phase{}, err
	}

	commSize, err := strconv.ParseFloat(fields[2], 64)
	if err != nil {
		return Phase{}, workloadErrorf(fields, "invalid phase info")
	}

	return NewPhase(computeTime, comm, commSize)
}
