package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/cespare/xxhash/v2"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/Faultbox/nudkit/internal/config"
	"github.com/Faultbox/nudkit/internal/export"
	"github.com/Faultbox/nudkit/internal/logger"
	"github.com/Faultbox/nudkit/internal/render"
	"github.com/Faultbox/nudkit/pkg/encoding"
	"github.com/Faultbox/nudkit/pkg/formats"
)

// env carries the resolved configuration shared by every command.
type env struct {
	cfg         *config.Config
	log         *zap.Logger
	opts        formats.NUDOptions
	compression formats.Compression
}

func newEnv(f *config.Flags) (*env, error) {
	cfg, err := config.Load(f)
	if err != nil {
		return nil, err
	}

	logOpts := logger.Options{
		Level:   cfg.Logging.Level,
		Console: true,
		JSON:    cfg.Logging.Format == "json",
	}
	if cfg.Logging.LogFile != "" {
		logOpts.File = logger.DefaultFileConfig(cfg.Logging.LogFile)
	}
	if err := logger.Init(logOpts); err != nil {
		return nil, err
	}

	return configure(cfg, logger.Named("nudtool"))
}

// configure resolves codec settings without touching the global logger.
func configure(cfg *config.Config, log *zap.Logger) (*env, error) {
	names, err := encoding.CodecByName(cfg.Codec.NameEncoding)
	if err != nil {
		return nil, err
	}
	compression, err := formats.ParseCompression(cfg.Codec.Compression)
	if err != nil {
		return nil, err
	}
	return &env{
		cfg:         cfg,
		log:         log,
		opts:        formats.NUDOptions{Names: names, Logger: log.Named("codec")},
		compression: compression,
	}, nil
}

// load reads, decompresses and parses a container. The decompressed bytes are
// returned alongside for fingerprinting.
func (e *env) load(path string) (*formats.NUD, []byte, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}
	data, err := formats.DecompressNUD(raw)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", path, err)
	}
	nud, err := formats.ParseNUDWithOptions(data, e.opts)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", path, err)
	}
	e.log.Debug("loaded container",
		zap.String("path", path),
		zap.String("compression", string(formats.DetectCompression(raw))),
		zap.Int("bytes", len(data)))
	return nud, data, nil
}

func (e *env) info(w io.Writer, path string) error {
	nud, data, err := e.load(path)
	if err != nil {
		return err
	}
	sections, err := formats.ReadNUDSections(data)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "File:     %s\n", path)
	fmt.Fprintf(w, "Size:     %d bytes\n", len(data))
	fmt.Fprintf(w, "XXH64:    %016x\n", xxhash.Sum64(data))
	fmt.Fprintf(w, "Version:  0x%04x\n", uint16(nud.Version))
	fmt.Fprintf(w, "Type:     %d\n", nud.Type)
	fmt.Fprintf(w, "Bones:    %d\n", nud.BoneCount)
	fmt.Fprintf(w, "Meshes:   %d\n", len(nud.Meshes))
	fmt.Fprintf(w, "Polygons: %d\n", nud.PolygonCount())
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Sections:")
	rows := []struct {
		name       string
		start, end int
	}{
		{"descriptors", sections.Descriptors, sections.Faces},
		{"faces", sections.Faces, sections.Vertices},
		{"vertices", sections.Vertices, sections.VertexExtra},
		{"vertex-extra", sections.VertexExtra, sections.Names},
		{"names", sections.Names, sections.End},
	}
	for _, r := range rows {
		fmt.Fprintf(w, "  %-13s 0x%06x  %8d bytes\n", r.name, r.start, r.end-r.start)
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Meshes:")
	for _, m := range nud.Meshes {
		bind := "weighted"
		if m.SingleBind >= 0 {
			bind = fmt.Sprintf("bone %d", m.SingleBind)
		}
		fmt.Fprintf(w, "  %-24s %3d polygons %6d vertices  %s\n", m.Name, len(m.Polygons), m.VertexCount(), bind)
	}
	return nil
}

// Summary types for dump. Format codes are shown in hex.
type (
	dumpContainer struct {
		Version string     `yaml:"version"`
		Type    int16      `yaml:"type"`
		Bones   int        `yaml:"bones"`
		Meshes  []dumpMesh `yaml:"meshes"`
	}
	dumpMesh struct {
		Name       string        `yaml:"name"`
		ID         int32         `yaml:"id"`
		SingleBind int16         `yaml:"single_bind"`
		Polygons   []dumpPolygon `yaml:"polygons"`
	}
	dumpPolygon struct {
		VertexFormat string         `yaml:"vertex_format"`
		UVFormat     string         `yaml:"uv_format"`
		Vertices     int            `yaml:"vertices"`
		Triangles    int            `yaml:"triangles"`
		Materials    []dumpMaterial `yaml:"materials,omitempty"`
	}
	dumpMaterial struct {
		Flags      string         `yaml:"flags"`
		Textures   []string       `yaml:"textures,omitempty"`
		Properties []dumpProperty `yaml:"properties"`
	}
	dumpProperty struct {
		Name   string    `yaml:"name"`
		Values []float32 `yaml:"values,flow"`
	}
)

func summarize(nud *formats.NUD) dumpContainer {
	out := dumpContainer{
		Version: fmt.Sprintf("0x%04x", uint16(nud.Version)),
		Type:    nud.Type,
		Bones:   nud.BoneCount,
	}
	for _, m := range nud.Meshes {
		dm := dumpMesh{Name: m.Name, ID: m.ID, SingleBind: m.SingleBind}
		for _, p := range m.Polygons {
			dp := dumpPolygon{
				VertexFormat: fmt.Sprintf("0x%02x", p.VertexFormat),
				UVFormat:     fmt.Sprintf("0x%02x", p.UVFormat),
				Vertices:     len(p.Vertices),
				Triangles:    len(p.Faces) / 3,
			}
			for _, mat := range p.Materials {
				dmat := dumpMaterial{Flags: fmt.Sprintf("0x%08x", uint32(mat.Flags))}
				for _, tex := range mat.Textures {
					dmat.Textures = append(dmat.Textures, fmt.Sprintf("0x%08x", uint32(tex.Hash)))
				}
				for _, prop := range mat.Properties {
					dmat.Properties = append(dmat.Properties, dumpProperty{Name: prop.Name, Values: prop.Values})
				}
				dp.Materials = append(dp.Materials, dmat)
			}
			dm.Polygons = append(dm.Polygons, dp)
		}
		out.Meshes = append(out.Meshes, dm)
	}
	return out
}

func (e *env) dump(w io.Writer, path string) error {
	nud, _, err := e.load(path)
	if err != nil {
		return err
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(summarize(nud)); err != nil {
		return err
	}
	return enc.Close()
}

func (e *env) rebuild(w io.Writer, in, out string) error {
	nud, data, err := e.load(in)
	if err != nil {
		return err
	}

	rebuilt, err := nud.RebuildWithOptions(e.opts)
	if err != nil {
		return fmt.Errorf("rebuilding %s: %w", in, err)
	}
	if err := verifyRebuild(nud, rebuilt, e.opts); err != nil {
		return err
	}

	packed, err := formats.CompressNUD(rebuilt, e.compression)
	if err != nil {
		return err
	}
	if err := os.WriteFile(out, packed, 0644); err != nil {
		return err
	}

	e.log.Info("rebuilt container",
		zap.String("in", in),
		zap.String("out", out),
		zap.String("compression", string(e.compression)))
	fmt.Fprintf(w, "Input:   %s (%d bytes, xxh64 %016x)\n", in, len(data), xxhash.Sum64(data))
	fmt.Fprintf(w, "Rebuilt: %s (%d bytes, xxh64 %016x)\n", out, len(rebuilt), xxhash.Sum64(rebuilt))
	if e.compression != formats.CompressionNone {
		fmt.Fprintf(w, "Written: %d bytes (%s)\n", len(packed), e.compression)
	}
	return nil
}

// verifyRebuild parses rebuilt data and checks it describes the same graph
// shape as the source.
func verifyRebuild(src *formats.NUD, rebuilt []byte, opts formats.NUDOptions) error {
	got, err := formats.ParseNUDWithOptions(rebuilt, opts)
	if err != nil {
		return fmt.Errorf("verifying rebuilt data: %w", err)
	}
	if len(got.Meshes) != len(src.Meshes) {
		return fmt.Errorf("verifying rebuilt data: %d meshes, want %d", len(got.Meshes), len(src.Meshes))
	}
	for i, m := range src.Meshes {
		g := got.Meshes[i]
		if g.Name != m.Name || len(g.Polygons) != len(m.Polygons) || g.VertexCount() != m.VertexCount() {
			return fmt.Errorf("verifying rebuilt data: mesh %d (%s) differs", i, m.Name)
		}
		for j, p := range m.Polygons {
			if len(g.Polygons[j].Faces) != len(p.Faces) || len(g.Polygons[j].Materials) != len(p.Materials) {
				return fmt.Errorf("verifying rebuilt data: mesh %d (%s) polygon %d differs", i, m.Name, j)
			}
		}
	}
	return nil
}

func (e *env) exportGLTF(w io.Writer, in, out string, hide []string) error {
	nud, _, err := e.load(in)
	if err != nil {
		return err
	}
	for _, name := range hide {
		if !nud.SetMeshVisible(name, false) {
			e.log.Warn("no mesh to hide", zap.String("name", name))
		}
	}

	scene := render.Flatten(nud, nil)
	opts := export.Options{
		Generator:  e.cfg.Export.Generator,
		SkipHidden: e.cfg.Export.SkipHidden,
		Skinning:   e.cfg.Export.Skinning,
		Logger:     e.log.Named("export"),
	}
	if err := export.WriteGLB(scene, out, opts); err != nil {
		return err
	}

	fmt.Fprintf(w, "Exported: %s (%d draws, %d visible, %d vertices)\n",
		out, len(scene.Draws), len(scene.VisibleDraws()), scene.VertexCount())
	return nil
}

// showConfig prints the effective configuration. With save set it is also
// written to path, or to the user config directory when path is empty.
func (e *env) showConfig(w io.Writer, save bool, path string) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(e.cfg); err != nil {
		return err
	}
	if err := enc.Close(); err != nil {
		return err
	}
	if !save {
		return nil
	}

	var err error
	if path == "" {
		path = filepath.Join(config.ConfigDir(), "config.yaml")
		err = e.cfg.Save()
	} else {
		err = e.cfg.SaveTo(path)
	}
	if err != nil {
		return fmt.Errorf("saving config: %w", err)
	}
	e.log.Info("config saved", zap.String("path", path))
	fmt.Fprintf(w, "Saved: %s\n", path)
	return nil
}
