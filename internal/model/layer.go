package model

// Layer is one fully-connected layer of a loaded model.
// The concrete type (TernaryLayer or DenseLayer) is chosen once at load time;
// the forward kernels never inspect the quantization mode per element.
type Layer interface {
	// Rows is the input width.
	Rows() int
	// Cols is the output width.
	Cols() int
	Quantization() Quantization
	// Forward writes the pre-activation outputs for in into out.
	// len(in) must equal Rows() and len(out) must equal Cols().
	Forward(in, out []float32)
	WeightCount() int
}

// TernaryLayer holds weights restricted to {-1,0,+1}.
// Weights are stored output-major: w[j*rows+i] connects input i to output j.
type TernaryLayer struct {
	rows, cols int
	w          []int8
	bias       []float32
}

// NewTernaryLayer builds a ternary layer from an output-major weight slice.
func NewTernaryLayer(rows, cols int, w []int8, bias []float32) *TernaryLayer {
	return &TernaryLayer{rows: rows, cols: cols, w: w, bias: bias}
}

func (l *TernaryLayer) Rows() int                  { return l.rows }
func (l *TernaryLayer) Cols() int                  { return l.cols }
func (l *TernaryLayer) Quantization() Quantization { return QuantizationTernary }
func (l *TernaryLayer) WeightCount() int           { return len(l.w) }

// Weight returns the weight connecting input i to output j.
func (l *TernaryLayer) Weight(i, j int) int8 {
	return l.w[j*l.rows+i]
}

// Forward adds inputs with weight +1, subtracts inputs with weight -1 and
// skips zeros. No multiplication happens.
func (l *TernaryLayer) Forward(in, out []float32) {
	for j := 0; j < l.cols; j++ {
		sum := l.bias[j]
		row := l.w[j*l.rows : (j+1)*l.rows]
		for i, w := range row {
			switch w {
			case 1:
				sum += in[i]
			case -1:
				sum -= in[i]
			}
		}
		out[j] = sum
	}
}

// DenseLayer holds continuous weights.
// Weights are stored output-major: w[j*rows+i] connects input i to output j.
type DenseLayer struct {
	rows, cols int
	w          []float32
	bias       []float32
}

// NewDenseLayer builds a dense layer from an output-major weight slice.
func NewDenseLayer(rows, cols int, w []float32, bias []float32) *DenseLayer {
	return &DenseLayer{rows: rows, cols: cols, w: w, bias: bias}
}

func (l *DenseLayer) Rows() int                  { return l.rows }
func (l *DenseLayer) Cols() int                  { return l.cols }
func (l *DenseLayer) Quantization() Quantization { return QuantizationDense }
func (l *DenseLayer) WeightCount() int           { return len(l.w) }

// Weight returns the weight connecting input i to output j.
func (l *DenseLayer) Weight(i, j int) float32 {
	return l.w[j*l.rows+i]
}

// Forward computes the multiply-accumulate sum for every output.
func (l *DenseLayer) Forward(in, out []float32) {
	for j := 0; j < l.cols; j++ {
		sum := l.bias[j]
		row := l.w[j*l.rows : (j+1)*l.rows]
		for i, w := range row {
			sum += w * in[i]
		}
		out[j] = sum
	}
}

// ToDense converts a ternary layer into the equivalent dense layer with
// weights cast to {-1.0, 0.0, +1.0}.
func (l *TernaryLayer) ToDense() *DenseLayer {
	w := make([]float32, len(l.w))
	for i, x := range l.w {
		w[i] = float32(x)
	}
	bias := make([]float32, len(l.bias))
	copy(bias, l.bias)
	return NewDenseLayer(l.rows, l.cols, w, bias)
}

// buildLayers converts a validated artifact into the runtime layer sequence.
// Artifact weights are row-major input x output; they are transposed to
// output-major here so the forward loops read contiguous memory.
func buildLayers(a *Artifact) []Layer {
	layers := make([]Layer, 0, len(a.Architecture)-1)
	for k := 1; k < len(a.Architecture); k++ {
		key := LayerKey(k)
		rows, cols := a.Architecture[k-1], a.Architecture[k]
		src := a.Weights[key]

		bias := make([]float32, cols)
		for j, b := range a.Biases[key] {
			bias[j] = float32(b)
		}

		switch a.Quantization {
		case QuantizationTernary:
			w := make([]int8, rows*cols)
			for i := 0; i < rows; i++ {
				for j := 0; j < cols; j++ {
					w[j*rows+i] = int8(src[i*cols+j])
				}
			}
			layers = append(layers, NewTernaryLayer(rows, cols, w, bias))
		default:
			w := make([]float32, rows*cols)
			for i := 0; i < rows; i++ {
				for j := 0; j < cols; j++ {
					w[j*rows+i] = float32(src[i*cols+j])
				}
			}
			layers = append(layers, NewDenseLayer(rows, cols, w, bias))
		}
	}
	return layers
}
