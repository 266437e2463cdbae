package ops

import (
	"math"

	"github.com/jacobjwood/Tricycle/internal/tensor"
)

// CrossEntropy computes the mean softmax cross-entropy loss between logits
// [batch, classes] and integer class labels [batch].
//
// The op is fused for numerical stability: the forward pass evaluates
// log-sum-exp directly (max-shifted) instead of materializing softmax then
// log, so extreme logits neither overflow nor collapse to log(0). Per row:
//
//	loss = logsumexp(logits) - logits[label]
//
// Backward: d logits = up * (softmax(logits) - onehot(label)) / batch.
// Labels are constants; no gradient flows to them.
func CrossEntropy(logits, labels *tensor.Tensor) (*tensor.Tensor, error) {
	if err := checkFloat("cross_entropy", logits); err != nil {
		return nil, err
	}
	if err := checkSameDevice("cross_entropy", logits, labels); err != nil {
		return nil, err
	}
	shape := logits.Shape()
	if len(shape) != 2 {
		return nil, &tensor.ShapeError{
			Op:     "cross_entropy",
			Detail: "logits must be [batch, classes]",
			Shapes: []tensor.Shape{shape},
			Axis:   -1,
		}
	}
	batch, classes := shape[0], shape[1]
	if !labels.Shape().Equal(tensor.Shape{batch}) {
		return nil, &tensor.ShapeError{
			Op:     "cross_entropy",
			Detail: "labels must match the batch axis",
			Shapes: []tensor.Shape{shape, labels.Shape()},
			Axis:   0,
		}
	}

	idx, err := labelIndices(labels.Array(), classes)
	if err != nil {
		return nil, err
	}

	be := logits.Backend()
	la := logits.Array()

	var total float64
	for r := 0; r < batch; r++ {
		maxVal := la.Float(r * classes)
		for c := 1; c < classes; c++ {
			if v := la.Float(r*classes + c); v > maxVal {
				maxVal = v
			}
		}
		var sum float64
		for c := 0; c < classes; c++ {
			sum += math.Exp(la.Float(r*classes+c) - maxVal)
		}
		total += maxVal + math.Log(sum) - la.Float(r*classes+idx[r])
	}

	out := tensor.MustNewArray(tensor.Shape{}, la.DType(), la.Device())
	out.SetFloat(0, total/float64(batch))

	return tensor.FromOp(out, be, "cross_entropy", []*tensor.Tensor{logits}, []tensor.BackFn{
		func(up *tensor.Array) (*tensor.Array, error) {
			g := be.Softmax(la).Clone()
			for r := 0; r < batch; r++ {
				i := r*classes + idx[r]
				g.SetFloat(i, g.Float(i)-1)
			}
			g = be.MulScalar(g, 1/float64(batch))
			// up is the scalar upstream gradient; broadcast-multiply.
			return be.Mul(g, up), nil
		},
	}), nil
}

// labelIndices reads integer labels and bounds-checks them against the
// class count.
func labelIndices(labels *tensor.Array, classes int) ([]int, error) {
	n := labels.NumElements()
	idx := make([]int, n)
	switch labels.DType() {
	case tensor.Int32:
		for i, v := range labels.AsInt32() {
			idx[i] = int(v)
		}
	case tensor.Int64:
		for i, v := range labels.AsInt64() {
			idx[i] = int(v)
		}
	default:
		return nil, &tensor.ShapeError{
			Op:     "cross_entropy",
			Detail: "labels must be an integer tensor, got " + labels.DType().String(),
			Shapes: []tensor.Shape{labels.Shape()},
			Axis:   -1,
		}
	}
	for i, v := range idx {
		if v < 0 || v >= classes {
			return nil, &tensor.ShapeError{
				Op:     "cross_entropy",
				Detail: "label out of range",
				Shapes: []tensor.Shape{labels.Shape()},
				Axis:   i,
			}
		}
	}
	return idx, nil
}
