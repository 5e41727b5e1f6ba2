package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/scigolib/omfiles"
)

type fileInfo struct {
	Version uint8        `yaml:"version"`
	Size    uint64       `yaml:"size"`
	Legacy  bool         `yaml:"legacy,omitempty"`
	Root    variableInfo `yaml:"root"`
}

type variableInfo struct {
	Name        string         `yaml:"name"`
	Type        string         `yaml:"type"`
	Compression string         `yaml:"compression,omitempty"`
	ScaleFactor float32        `yaml:"scale_factor,omitempty"`
	AddOffset   float32        `yaml:"add_offset,omitempty"`
	Dims        []uint64       `yaml:"dims,flow,omitempty"`
	Chunks      []uint64       `yaml:"chunks,flow,omitempty"`
	Value       any            `yaml:"value,omitempty"`
	Children    []variableInfo `yaml:"children,omitempty"`
}

func (a *app) newInfoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info <file>",
		Short: "Print the variable tree as YAML",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := omfiles.Open(args[0], omfiles.WithLogger(a.logger))
			if err != nil {
				return err
			}
			defer func() { _ = r.Close() }()

			root, err := describe(r.Root())
			if err != nil {
				return err
			}
			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			if err := enc.Encode(fileInfo{
				Version: r.Version(),
				Size:    r.Size(),
				Legacy:  r.IsLegacy(),
				Root:    root,
			}); err != nil {
				return fmt.Errorf("encode info: %w", err)
			}
			return enc.Close()
		},
	}
}

func describe(v *omfiles.Variable) (variableInfo, error) {
	info := variableInfo{Name: v.Name(), Type: v.DataType().String()}
	switch {
	case v.IsArray():
		info.Compression = v.Compression().String()
		info.ScaleFactor = v.ScaleFactor()
		info.AddOffset = v.AddOffset()
		info.Dims = v.Dims()
		info.Chunks = v.Chunks()
	case v.IsScalar():
		val, err := v.Value()
		if err != nil {
			return info, err
		}
		info.Value = val
	}
	for _, c := range v.Children() {
		ci, err := describe(c)
		if err != nil {
			return info, err
		}
		info.Children = append(info.Children, ci)
	}
	return info, nil
}
