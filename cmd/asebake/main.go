// Command asebake composites an Aseprite file and writes a sprite atlas,
// per-frame PNGs, one GIF per animation and a JSON manifest.
package main

import (
	"context"
	"flag"
	"image"
	"os"

	"badc0de.net/pkg/flagutil/v1"
	"github.com/golang/glog"

	"github.com/setanarut/asebake/aseparser"
	"github.com/setanarut/asebake/internal/imageprint"
)

var (
	inPath        = flag.String("in", "", "Aseprite file to bake")
	outDir        = flag.String("out", ".", "output directory")
	atlas         = flag.Bool("png", true, "whether to write the sprite atlas PNG")
	frames        = flag.Bool("frames", false, "whether to write one PNG per frame")
	gifs          = flag.Bool("gif", false, "whether to write one GIF per animation")
	writeManifest = flag.Bool("manifest", true, "whether to write the JSON manifest")
	embed         = flag.Bool("embed", false, "whether to embed the atlas in the manifest as a data URL")
	scale         = flag.Int("scale", 1, "integer upscale factor for written images")
	jobs          = flag.Int("jobs", 4, "number of files written concurrently")

	untagged   = flag.String("untagged", aseparser.DefaultUntaggedName, "animation name for frames without a tag")
	anchorName = flag.String("anchor", aseparser.DefaultAnchorName, "slice name marking the sprite pivot")

	preview = flag.Bool("preview", false, "whether to print the first frame on the terminal")
	thumb   = flag.Uint("thumb", 48, "maximum preview size in cells, 0 for native size")
	col256  = flag.Bool("col256", false, "whether to preview with 256 colors instead of 24 bit")
	nocolor = flag.Bool("nocolor", false, "whether to preview with ascii art only")
)

func main() {
	flagutil.Parse()
	flag.Set("logtostderr", "true")
	defer glog.Flush()

	if *inPath == "" {
		glog.Exitf("no input file, pass -in")
	}

	ase, err := aseparser.ReadFile(*inPath, aseparser.Config{
		UntaggedName: *untagged,
		AnchorName:   *anchorName,
	})
	if err != nil {
		glog.Exitf("decoding %s: %v", *inPath, err)
	}
	glog.Infof("%s: %dx%d, %d frames, %d animations, %d warnings",
		*inPath, ase.Header.Width, ase.Header.Height, len(ase.Frames), len(ase.Segments), len(ase.Warnings))

	b := newBaker(ase, *inPath, options{
		out:      *outDir,
		scale:    *scale,
		jobs:     *jobs,
		atlas:    *atlas,
		frames:   *frames,
		gif:      *gifs,
		manifest: *writeManifest,
		embed:    *embed,
	})
	if err := b.run(context.Background()); err != nil {
		glog.Exitf("baking %s: %v", *inPath, err)
	}

	if *preview {
		printPreview(ase)
	}
}

func printPreview(ase *aseparser.Aseprite) {
	if len(ase.Frames) == 0 {
		return
	}
	var img image.Image = ase.FrameImage(0)
	if *thumb > 0 {
		img = imageprint.Fit(img, *thumb, *thumb)
	}

	mode := imageprint.Auto
	switch {
	case *nocolor:
		mode = imageprint.NoColor
	case *col256:
		mode = imageprint.Color256
	case !imageprint.IsTerminal():
		mode = imageprint.TrueColor
	}
	if err := imageprint.Print(os.Stdout, img, mode); err != nil {
		glog.Errorf("printing preview: %v", err)
	}
}
