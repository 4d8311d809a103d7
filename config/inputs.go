// Package config loads the YAML descriptions of a LIBRA run.
package config

import (
	"bytes"
	"os"
	"sort"

	"github.com/pkg/errors"
	"github.com/samber/lo"
	"github.com/sarchlab/libra"
	"github.com/sarchlab/libra/communicator"
	"github.com/sarchlab/libra/costmodel"
	"github.com/sarchlab/libra/networkmodel"
	"gopkg.in/yaml.v3"
)

// readYAML decodes the file at path into out. A missing file is reported
// with notFound.
func readYAML(path string, out any, notFound error) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return notFound
		}

		return errors.Wrapf(err, "read %s", path)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	if err := dec.Decode(out); err != nil {
		return errors.Wrapf(err, "parse %s", path)
	}

	return nil
}

type networkFile struct {
	Topology      []string `yaml:"Topology"`
	NpusCount     []int    `yaml:"NpusCount"`
	CostDimension []string `yaml:"CostDimension"`
}

// LoadNetwork loads a network description such as
//
//	Topology: [Ring, Switch]
//	NpusCount: [4, 8]
//	CostDimension: [A, B]
func LoadNetwork(path string) (*networkmodel.Network, error) {
	var f networkFile

	err := readYAML(path, &f,
		&networkmodel.Error{Msg: "network model does not exist", Value: path})
	if err != nil {
		return nil, err
	}

	blocks, err := networkmodel.ParseBuildingBlocks(f.Topology)
	if err != nil {
		return nil, err
	}

	return networkmodel.NewNetwork(blocks, f.NpusCount, f.CostDimension)
}

// LoadCostModel loads unit costs keyed by cost dimension and element:
//
//	A: {Link: 2, Nic: 4, Switch: 8}
func LoadCostModel(path string) (*costmodel.CostModel, error) {
	var f map[string]map[string]float64

	err := readYAML(path, &f,
		&costmodel.Error{Msg: "cost model does not exist", Value: path})
	if err != nil {
		return nil, err
	}

	m := costmodel.NewCostModel()

	dims := lo.Keys(f)
	sort.Strings(dims)

	for _, dim := range dims {
		names := lo.Keys(f[dim])
		sort.Strings(names)

		for _, name := range names {
			e, err := costmodel.ParseCostElement(name)
			if err != nil {
				return nil, err
			}

			if err := m.SetUnitCost(dim, e, f[dim][name]); err != nil {
				return nil, err
			}
		}
	}

	return m, nil
}

type communicatorFile struct {
	Forward    []int `yaml:"Forward"`
	InputGrad  []int `yaml:"InputGrad"`
	WeightGrad []int `yaml:"WeightGrad"`
}

// LoadCommunicator loads the per-dimension group sizes of each phase. A
// negative size marks an unused dimension:
//
//	Forward: [4, -1]
//	InputGrad: [4, -1]
//	WeightGrad: [4, 8]
func LoadCommunicator(path string) (*communicator.Communicator, error) {
	var f communicatorFile

	err := readYAML(path, &f,
		&communicator.Error{Msg: "communicator does not exist", Value: path})
	if err != nil {
		return nil, err
	}

	phases := []struct {
		name   string
		groups []int
	}{
		{"Forward", f.Forward},
		{"InputGrad", f.InputGrad},
		{"WeightGrad", f.WeightGrad},
	}

	for _, p := range phases {
		if p.groups == nil {
			return nil, &communicator.Error{
				Msg: "communicator is missing a phase", Value: p.name}
		}
	}

	return communicator.NewFromInts(f.Forward, f.InputGrad, f.WeightGrad)
}

// LoadWorkload loads a workload in the ASTRA-sim 1.0 text format.
func LoadWorkload(path string) (*libra.Workload, error) {
	loader := &libra.WorkloadLoader{Path: path}
	return loader.Load()
}
