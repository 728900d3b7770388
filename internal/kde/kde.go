// Package kde implements multivariate kernel density estimation with an
// isotropic bandwidth. Densities are evaluated in log space so very small
// likelihoods do not underflow.
package kde

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Kernel names a smoothing kernel.
type Kernel string

// Supported kernels.
const (
	Gaussian     Kernel = "gaussian"
	Tophat       Kernel = "tophat"
	Epanechnikov Kernel = "epanechnikov"
	Exponential  Kernel = "exponential"
	Linear       Kernel = "linear"
)

// Kernels lists every supported kernel.
var Kernels = []Kernel{Gaussian, Tophat, Epanechnikov, Exponential, Linear}

// ParseKernel validates a kernel name. The empty string selects Gaussian.
func ParseKernel(name string) (Kernel, error) {
	if name == "" {
		return Gaussian, nil
	}
	for _, k := range Kernels {
		if string(k) == name {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown kernel %q (valid: %v)", name, Kernels)
}

// Density is a fitted kernel density estimate. It is immutable after Fit.
// Fields are exported for gob encoding only.
type Density struct {
	Kernel    Kernel
	Bandwidth float64
	Samples   *mat.Dense
}

// Fit builds a density estimate over the rows of X.
func Fit(X mat.Matrix, bandwidth float64, kernel Kernel) (*Density, error) {
	if _, err := ParseKernel(string(kernel)); err != nil {
		return nil, err
	}
	if !(bandwidth > 0) || math.IsInf(bandwidth, 0) {
		return nil, fmt.Errorf("bandwidth must be positive and finite, got %v", bandwidth)
	}
	if X == nil {
		return nil, fmt.Errorf("no samples")
	}
	r, c := X.Dims()
	if r == 0 || c == 0 {
		return nil, fmt.Errorf("need at least one sample with one feature, got %dx%d", r, c)
	}
	if kernel == "" {
		kernel = Gaussian
	}
	return &Density{Kernel: kernel, Bandwidth: bandwidth, Samples: mat.DenseCopyOf(X)}, nil
}

// Dims returns the number of samples and features.
func (d *Density) Dims() (samples, features int) { return d.Samples.Dims() }

// LogPDF returns the log density at x. It returns -Inf when x lies outside
// the support of every sample (compact kernels only).
func (d *Density) LogPDF(x []float64) float64 {
	n, dim := d.Samples.Dims()
	if len(x) != dim {
		panic(fmt.Sprintf("kde: point has %d features, density has %d", len(x), dim))
	}
	return d.logPDF(x, make([]float64, n), d.logNormalizer())
}

// ScoreSamples returns the log density at each row of X. It fails when X
// does not have the fitted feature count.
func (d *Density) ScoreSamples(X mat.Matrix) ([]float64, error) {
	n, dim := d.Samples.Dims()
	r, c := X.Dims()
	if c != dim {
		return nil, fmt.Errorf("points have %d features, density has %d", c, dim)
	}
	norm := d.logNormalizer()
	buf := make([]float64, n)
	x := make([]float64, c)
	out := make([]float64, r)
	for i := 0; i < r; i++ {
		mat.Row(x, i, X)
		out[i] = d.logPDF(x, buf, norm)
	}
	return out, nil
}

func (d *Density) logPDF(x, buf []float64, norm float64) float64 {
	n, _ := d.Samples.Dims()
	h := d.Bandwidth
	for i := 0; i < n; i++ {
		u := floats.Distance(x, d.Samples.RawRowView(i), 2) / h
		buf[i] = logKernel(d.Kernel, u)
	}
	lse := floats.LogSumExp(buf)
	if math.IsInf(lse, -1) || math.IsNaN(lse) {
		return math.Inf(-1)
	}
	return lse + norm
}

// logNormalizer is log(c_K(d)) - d*log(h) - log(n), the constant that makes
// the kernel sum integrate to one.
func (d *Density) logNormalizer() float64 {
	n, dim := d.Samples.Dims()
	return logKernelNorm(d.Kernel, dim) - float64(dim)*math.Log(d.Bandwidth) - math.Log(float64(n))
}

// logKernel is the unnormalised log kernel at scaled distance u >= 0.
func logKernel(k Kernel, u float64) float64 {
	switch k {
	case Tophat:
		if u < 1 {
			return 0
		}
	case Epanechnikov:
		if u < 1 {
			return math.Log(1 - u*u)
		}
	case Exponential:
		return -u
	case Linear:
		if u < 1 {
			return math.Log(1 - u)
		}
	default:
		return -0.5 * u * u
	}
	return math.Inf(-1)
}

// logKernelNorm is the log of the constant normalising the kernel over R^d.
func logKernelNorm(k Kernel, d int) float64 {
	fd := float64(d)
	switch k {
	case Tophat:
		return -logUnitBallVolume(d)
	case Epanechnikov:
		return math.Log((fd+2)/2) - logUnitBallVolume(d)
	case Exponential:
		lg, _ := math.Lgamma(fd)
		return -math.Log(fd) - logUnitBallVolume(d) - lg
	case Linear:
		return math.Log(fd+1) - logUnitBallVolume(d)
	default:
		return -0.5 * fd * math.Log(2*math.Pi)
	}
}

func logUnitBallVolume(d int) float64 {
	fd := float64(d)
	lg, _ := math.Lgamma(fd/2 + 1)
	return fd/2*math.Log(math.Pi) - lg
}
