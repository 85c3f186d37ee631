package alignment

import (
	"errors"
	"fmt"
	"math"
	"math/rand"

	"ballot-converter/pkg/geometry"

	"gonum.org/v1/gonum/mat"
)

// ErrDegenerate is returned when the points do not determine a transform.
var ErrDegenerate = errors.New("degenerate point set")

// ComputeAffineRANSAC fits an affine transform mapping src onto dst while
// ignoring correspondences further than threshold from the consensus.
func ComputeAffineRANSAC(rng *rand.Rand, srcPoints, dstPoints []geometry.Point2D, iterations int, threshold float64) (geometry.AffineTransform, []int, error) {
	if len(srcPoints) != len(dstPoints) {
		return geometry.AffineTransform{}, nil, fmt.Errorf("point count mismatch: %d vs %d", len(srcPoints), len(dstPoints))
	}
	if len(srcPoints) < 3 {
		return geometry.AffineTransform{}, nil, fmt.Errorf("need at least 3 points, got %d: %w", len(srcPoints), ErrDegenerate)
	}

	n := len(srcPoints)
	var bestInliers []int
	var bestTransform geometry.AffineTransform

	for iter := 0; iter < iterations; iter++ {
		indices := rng.Perm(n)[:3]

		sample := make([]geometry.Point2D, 3)
		target := make([]geometry.Point2D, 3)
		for i, idx := range indices {
			sample[i] = srcPoints[idx]
			target[i] = dstPoints[idx]
		}

		transform, err := computeAffineFromPoints(sample, target)
		if err != nil {
			continue
		}

		inliers := inliersOf(transform, srcPoints, dstPoints, threshold)
		if len(inliers) > len(bestInliers) {
			bestInliers = inliers
			bestTransform = transform
		}
		if len(bestInliers) == n {
			break
		}
	}

	if len(bestInliers) < 3 {
		return geometry.AffineTransform{}, nil, fmt.Errorf("RANSAC found %d inliers: %w", len(bestInliers), ErrDegenerate)
	}

	inlierSrc := make([]geometry.Point2D, len(bestInliers))
	inlierDst := make([]geometry.Point2D, len(bestInliers))
	for i, idx := range bestInliers {
		inlierSrc[i] = srcPoints[idx]
		inlierDst[i] = dstPoints[idx]
	}

	final, err := computeAffineLeastSquares(inlierSrc, inlierDst)
	if err != nil {
		return bestTransform, bestInliers, nil
	}
	return final, bestInliers, nil
}

func inliersOf(t geometry.AffineTransform, src, dst []geometry.Point2D, threshold float64) []int {
	var inliers []int
	for i := range src {
		if t.Apply(src[i]).Distance(dst[i]) < threshold {
			inliers = append(inliers, i)
		}
	}
	return inliers
}

// computeAffineFromPoints solves the affine transform through exactly three
// point pairs.
func computeAffineFromPoints(src, dst []geometry.Point2D) (geometry.AffineTransform, error) {
	if len(src) != 3 || len(dst) != 3 {
		return geometry.AffineTransform{}, fmt.Errorf("need exactly 3 points")
	}

	// [x', y'] = [a, b, tx; c, d, ty] * [x, y, 1]
	A := mat.NewDense(6, 6, nil)
	B := mat.NewVecDense(6, nil)
	for i := 0; i < 3; i++ {
		setRows(A, B, i, src[i], dst[i])
	}

	var params mat.VecDense
	if err := params.SolveVec(A, B); err != nil {
		return geometry.AffineTransform{}, err
	}
	return fromParams(&params), nil
}

// computeAffineLeastSquares fits an affine transform to n >= 3 point pairs.
func computeAffineLeastSquares(src, dst []geometry.Point2D) (geometry.AffineTransform, error) {
	n := len(src)
	if n < 3 {
		return geometry.AffineTransform{}, fmt.Errorf("need at least 3 points: %w", ErrDegenerate)
	}

	A := mat.NewDense(n*2, 6, nil)
	B := mat.NewVecDense(n*2, nil)
	for i := 0; i < n; i++ {
		setRows(A, B, i, src[i], dst[i])
	}

	var qr mat.QR
	qr.Factorize(A)

	var params mat.VecDense
	if err := qr.SolveVecTo(&params, false, B); err != nil {
		return geometry.AffineTransform{}, err
	}
	return fromParams(&params), nil
}

func setRows(A *mat.Dense, B *mat.VecDense, i int, s, d geometry.Point2D) {
	A.Set(i*2, 0, s.X)
	A.Set(i*2, 1, s.Y)
	A.Set(i*2, 2, 1)
	B.SetVec(i*2, d.X)

	A.Set(i*2+1, 3, s.X)
	A.Set(i*2+1, 4, s.Y)
	A.Set(i*2+1, 5, 1)
	B.SetVec(i*2+1, d.Y)
}

func fromParams(p *mat.VecDense) geometry.AffineTransform {
	return geometry.AffineTransform{
		A:  p.AtVec(0),
		B:  p.AtVec(1),
		TX: p.AtVec(2),
		C:  p.AtVec(3),
		D:  p.AtVec(4),
		TY: p.AtVec(5),
	}
}

// CalculateAlignmentError returns the mean distance between the
// transformed source points and their targets.
func CalculateAlignmentError(srcPoints, dstPoints []geometry.Point2D, transform geometry.AffineTransform) float64 {
	if len(srcPoints) != len(dstPoints) || len(srcPoints) == 0 {
		return math.Inf(1)
	}

	var total float64
	for i := range srcPoints {
		total += transform.Apply(srcPoints[i]).Distance(dstPoints[i])
	}
	return total / float64(len(srcPoints))
}
