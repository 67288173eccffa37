package features

import (
	"errors"
	"image"

	"golang.org/x/image/draw"
)

// Feature layout constants. Every frame maps to a vector of exactly Dim
// values regardless of its resolution: frames are rescaled to a fixed
// analysis plane and each block summarizes it on a fixed grid.
const (
	analysisSize = 256 // analysis plane is analysisSize x analysisSize

	edgeGrid     = 8 // edge density cells per axis
	textureGrid  = 4 // texture energy cells per axis, per orientation
	saliencyGrid = 4 // saliency energy cells per axis
	colorBins    = 32

	EdgeBlockSize     = edgeGrid * edgeGrid                    // 64
	TextureBlockSize  = 4 * textureGrid * textureGrid          // 64, one sub-block per orientation
	SaliencyBlockSize = saliencyGrid * saliencyGrid            // 16
	ColorBlockSize    = 3 * colorBins                          // 96
	Dim               = EdgeBlockSize + TextureBlockSize + SaliencyBlockSize + ColorBlockSize
)

// Gradient magnitude thresholds for the edge detector. A pixel above the high
// threshold is an edge; one between the thresholds counts only when it
// touches a strong edge pixel.
const (
	edgeHighThreshold = 100.0
	edgeLowThreshold  = 40.0
)

// ErrInvalidFrame is returned for frames with zero spatial extent.
var ErrInvalidFrame = errors.New("features: frame has no spatial extent")

// Extract maps one frame to its perceptual feature vector. The function is
// pure: it reads only the frame and package constants.
func Extract(frame image.Image) ([]float64, error) {
	if frame == nil {
		return nil, ErrInvalidFrame
	}
	bounds := frame.Bounds()
	if bounds.Dx() <= 0 || bounds.Dy() <= 0 {
		return nil, ErrInvalidFrame
	}

	resized := resizeFrame(frame, analysisSize, analysisSize)
	luma := toLuma(resized)

	vec := make([]float64, 0, Dim)
	vec = append(vec, edgeBlock(luma)...)
	vec = append(vec, textureBlock(luma)...)
	vec = append(vec, saliencyBlock(luma)...)
	vec = append(vec, colorBlock(resized)...)
	return vec, nil
}

// resizeFrame scales a frame to the specified dimensions.
func resizeFrame(img image.Image, width, height int) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.BiLinear.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Over, nil)
	return dst
}

// toLuma converts an image to a 2D array of luminance values (0-255).
func toLuma(img *image.RGBA) [][]float64 {
	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	luma := make([][]float64, width)
	for x := range width {
		luma[x] = make([]float64, height)
		for y := range height {
			r, g, b, _ := img.At(x, y).RGBA()
			// ITU-R BT.601 luma formula.
			luma[x][y] = 0.299*float64(r>>8) + 0.587*float64(g>>8) + 0.114*float64(b>>8)
		}
	}
	return luma
}

// edgeBlock runs a two-threshold Sobel edge detector over the luminance plane
// and returns per-cell edge densities on an edgeGrid x edgeGrid grid.
func edgeBlock(luma [][]float64) []float64 {
	size := len(luma)
	strong := make([][]bool, size)
	weak := make([][]bool, size)
	for x := range size {
		strong[x] = make([]bool, size)
		weak[x] = make([]bool, size)
	}

	for x := 1; x < size-1; x++ {
		for y := 1; y < size-1; y++ {
			gx := luma[x+1][y-1] + 2*luma[x+1][y] + luma[x+1][y+1] -
				luma[x-1][y-1] - 2*luma[x-1][y] - luma[x-1][y+1]
			gy := luma[x-1][y+1] + 2*luma[x][y+1] + luma[x+1][y+1] -
				luma[x-1][y-1] - 2*luma[x][y-1] - luma[x+1][y-1]
			mag := gx*gx + gy*gy
			switch {
			case mag >= edgeHighThreshold*edgeHighThreshold:
				strong[x][y] = true
			case mag >= edgeLowThreshold*edgeLowThreshold:
				weak[x][y] = true
			}
		}
	}

	// A weak pixel survives only next to a strong one.
	edges := make([][]bool, size)
	for x := range size {
		edges[x] = make([]bool, size)
	}
	for x := 1; x < size-1; x++ {
		for y := 1; y < size-1; y++ {
			if strong[x][y] {
				edges[x][y] = true
				continue
			}
			if !weak[x][y] {
				continue
			}
			for dx := -1; dx <= 1 && !edges[x][y]; dx++ {
				for dy := -1; dy <= 1; dy++ {
					if strong[x+dx][y+dy] {
						edges[x][y] = true
						break
					}
				}
			}
		}
	}

	cell := size / edgeGrid
	block := make([]float64, 0, EdgeBlockSize)
	for cy := 0; cy < edgeGrid; cy++ {
		for cx := 0; cx < edgeGrid; cx++ {
			count := 0
			for x := cx * cell; x < (cx+1)*cell; x++ {
				for y := cy * cell; y < (cy+1)*cell; y++ {
					if edges[x][y] {
						count++
					}
				}
			}
			block = append(block, float64(count)/float64(cell*cell))
		}
	}
	return block
}

// textureOffsets holds the sample offsets of the oriented band-pass filters,
// one per canonical orientation (0, 45, 90, 135 degrees).
var textureOffsets = [4][2][2]int{
	{{-1, 0}, {1, 0}},
	{{-1, -1}, {1, 1}},
	{{0, -1}, {0, 1}},
	{{-1, 1}, {1, -1}},
}

// textureBlock convolves the luminance plane with a second-derivative filter
// along each orientation and returns per-cell mean absolute responses.
func textureBlock(luma [][]float64) []float64 {
	size := len(luma)
	cell := size / textureGrid
	block := make([]float64, 0, TextureBlockSize)

	for _, offs := range textureOffsets {
		for cy := 0; cy < textureGrid; cy++ {
			for cx := 0; cx < textureGrid; cx++ {
				var sum float64
				n := 0
				for x := cx * cell; x < (cx+1)*cell; x++ {
					for y := cy * cell; y < (cy+1)*cell; y++ {
						if x < 1 || y < 1 || x >= size-1 || y >= size-1 {
							continue
						}
						a := luma[x+offs[0][0]][y+offs[0][1]]
						b := luma[x+offs[1][0]][y+offs[1][1]]
						resp := 2*luma[x][y] - a - b
						if resp < 0 {
							resp = -resp
						}
						sum += resp
						n++
					}
				}
				if n > 0 {
					block = append(block, sum/float64(n)/255)
				} else {
					block = append(block, 0)
				}
			}
		}
	}
	return block
}

// saliencyBlock applies a 4-neighbor Laplacian and returns per-cell mean
// absolute responses.
func saliencyBlock(luma [][]float64) []float64 {
	size := len(luma)
	cell := size / saliencyGrid
	block := make([]float64, 0, SaliencyBlockSize)

	for cy := 0; cy < saliencyGrid; cy++ {
		for cx := 0; cx < saliencyGrid; cx++ {
			var sum float64
			n := 0
			for x := cx * cell; x < (cx+1)*cell; x++ {
				for y := cy * cell; y < (cy+1)*cell; y++ {
					if x < 1 || y < 1 || x >= size-1 || y >= size-1 {
						continue
					}
					resp := 4*luma[x][y] - luma[x-1][y] - luma[x+1][y] - luma[x][y-1] - luma[x][y+1]
					if resp < 0 {
						resp = -resp
					}
					sum += resp
					n++
				}
			}
			if n > 0 {
				block = append(block, sum/float64(n)/255)
			} else {
				block = append(block, 0)
			}
		}
	}
	return block
}

// colorBlock computes a colorBins histogram per RGB channel, normalized by
// pixel count, concatenated R then G then B.
func colorBlock(img *image.RGBA) []float64 {
	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()
	total := float64(width * height)

	hist := make([]float64, ColorBlockSize)
	binWidth := 256 / colorBins
	for x := 0; x < width; x++ {
		for y := 0; y < height; y++ {
			r, g, b, _ := img.At(x, y).RGBA()
			hist[int(r>>8)/binWidth]++
			hist[colorBins+int(g>>8)/binWidth]++
			hist[2*colorBins+int(b>>8)/binWidth]++
		}
	}
	for i := range hist {
		hist[i] /= total
	}
	return hist
}
