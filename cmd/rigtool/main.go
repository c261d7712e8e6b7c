// rigtool is a headless CLI for the rigbench pipeline: inspect meshes and
// clips, and turn a mesh plus saved marker placements into a skinned GLB
// without opening the viewer.
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/Faultbox/rigbench/internal/anim"
	"github.com/Faultbox/rigbench/internal/rig"
	"github.com/Faultbox/rigbench/internal/rig/bind"
	"github.com/Faultbox/rigbench/pkg/formats"
	"github.com/Faultbox/rigbench/pkg/mesh"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	switch command {
	case "info":
		cmdInfo(args)
	case "clip":
		cmdClip(args)
	case "rig":
		cmdRig(args)
	case "strip":
		cmdStrip(args)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`rigtool - headless rigbench pipeline utility

Usage:
  rigtool <command> [options]

Commands:
  info <model>                         Show mesh statistics
  clip <file.glb> [index]              Show animation clip details
  rig <model> <placements.yaml> <out>  Bind a mesh to synthesized joints
  strip <in.glb> <out.glb>             Remove the skeleton from a GLB

Examples:
  rigtool info subject.obj
  rigtool clip walk.glb
  rigtool rig subject.obj markers.yaml rigged.glb
  rigtool strip rigged.glb plain.glb`)
}

func fatal(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}

func loadMesh(path string) *mesh.TriMesh {
	data, err := os.ReadFile(path)
	if err != nil {
		fatal("%v", err)
	}
	m, err := formats.Decode(formats.Detect(path), data)
	if err != nil {
		fatal("decoding %s: %v", path, err)
	}
	return m
}

func cmdInfo(args []string) {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: rigtool info <model>")
		os.Exit(1)
	}

	m := loadMesh(args[0])
	size := m.Bounds.Size()

	fmt.Printf("Model:     %s\n", args[0])
	fmt.Printf("Vertices:  %d\n", len(m.Vertices))
	fmt.Printf("Triangles: %d\n", len(m.Indices)/3)
	fmt.Printf("Materials: %d\n", len(m.Materials))
	fmt.Printf("Groups:    %d\n", len(m.Groups))
	fmt.Printf("Size:      %.3f x %.3f x %.3f\n", size[0], size[1], size[2])
}

func cmdClip(args []string) {
	fs := flag.NewFlagSet("clip", flag.ExitOnError)
	index := fs.Int("i", 0, "Animation index")
	fs.Parse(args)

	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Usage: rigtool clip <file.glb>")
		os.Exit(1)
	}

	data, err := os.ReadFile(fs.Arg(0))
	if err != nil {
		fatal("%v", err)
	}
	doc, err := formats.DecodeGLTFDocument(data)
	if err != nil {
		fatal("parsing %s: %v", fs.Arg(0), err)
	}
	clip, err := anim.LoadClip(doc, *index)
	if err != nil {
		fatal("loading clip: %v", err)
	}

	fmt.Printf("Clip:     %s\n", clip.Name)
	fmt.Printf("Duration: %.3fs (%d frames)\n", clip.Duration, int(clip.Duration*anim.FramesPerSecond))
	fmt.Printf("Tracks:   %d\n", clip.TrackCount())

	joints := make(map[string]bool)
	for _, tr := range clip.Tracks {
		joints[tr.Joint] = true
	}
	fmt.Println("Joints:")
	for _, tr := range clip.Tracks {
		if !joints[tr.Joint] {
			continue
		}
		joints[tr.Joint] = false
		fmt.Printf("  %s\n", tr.Joint)
	}
}

func cmdRig(args []string) {
	fs := flag.NewFlagSet("rig", flag.ExitOnError)
	height := fs.Float64("height", 1.8, "Normalized model height in meters")
	fs.Parse(args)

	if fs.NArg() < 3 {
		fmt.Fprintln(os.Stderr, "Usage: rigtool rig <model> <placements.yaml> <out.glb>")
		os.Exit(1)
	}

	m := loadMesh(fs.Arg(0))
	mesh.Normalize(m, mesh.NormalizeOptions{TargetHeight: float32(*height)})
	m.EnsureRenderable()

	positions, err := rig.LoadPlacements(fs.Arg(1))
	if err != nil {
		fatal("%v", err)
	}
	editor := rig.NewEditor(m.Bounds)
	rig.ApplyPlacements(editor, positions)

	skeleton, err := rig.Synthesize(editor.PlacedPositions())
	if err != nil {
		fatal("synthesis: %v", err)
	}

	doc, err := bind.Bind(m, skeleton)
	if err != nil {
		fatal("bind: %v", err)
	}
	out, err := bind.EncodeGLB(doc)
	if err != nil {
		fatal("encode: %v", err)
	}
	if err := os.WriteFile(fs.Arg(2), out, 0644); err != nil {
		fatal("%v", err)
	}

	fmt.Printf("Wrote %s: %d joints, %d vertices\n",
		fs.Arg(2), len(skeleton.Joints), len(m.Vertices))
}

func cmdStrip(args []string) {
	if len(args) < 2 {
		fmt.Fprintln(os.Stderr, "Usage: rigtool strip <in.glb> <out.glb>")
		os.Exit(1)
	}

	data, err := os.ReadFile(args[0])
	if err != nil {
		fatal("%v", err)
	}
	doc, err := formats.DecodeGLTFDocument(data)
	if err != nil {
		fatal("parsing %s: %v", args[0], err)
	}

	stripped := bind.Strip(doc)
	out, err := bind.EncodeGLB(stripped)
	if err != nil {
		fatal("encode: %v", err)
	}
	if err := os.WriteFile(args[1], out, 0644); err != nil {
		fatal("%v", err)
	}

	removed := len(doc.Nodes) - len(stripped.Nodes)
	name := strings.TrimSuffix(args[1], ".glb")
	fmt.Printf("Wrote %s.glb: removed %d skeleton nodes\n", name, removed)
}
