package model

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Regressor maps a standardised feature vector to a prediction.
type Regressor interface {
	Predict(x []float64) (float64, error)
}

// Linear is an ordinary least-squares style model.
type Linear struct {
	Intercept    float64   `json:"intercept"`
	Coefficients []float64 `json:"coefficients"`
}

func (l *Linear) Predict(x []float64) (float64, error) {
	if len(x) != len(l.Coefficients) {
		return 0, fmt.Errorf("linear model expects %d values, got %d", len(l.Coefficients), len(x))
	}
	if len(x) == 0 {
		return l.Intercept, nil
	}
	return l.Intercept + mat.Dot(mat.NewVecDense(len(x), x), mat.NewVecDense(len(x), l.Coefficients)), nil
}

// Tree is a fitted regression tree in parallel-array form. A node is a leaf
// when ChildrenLeft is -1; otherwise x[Feature] <= Threshold goes left.
type Tree struct {
	ChildrenLeft  []int     `json:"children_left"`
	ChildrenRight []int     `json:"children_right"`
	Feature       []int     `json:"feature"`
	Threshold     []float64 `json:"threshold"`
	Value         []float64 `json:"value"`
}

const leaf = -1

func (t *Tree) validate(width int) error {
	n := len(t.ChildrenLeft)
	if n == 0 {
		return errors.New("tree has no nodes")
	}
	if len(t.ChildrenRight) != n || len(t.Feature) != n || len(t.Threshold) != n || len(t.Value) != n {
		return errors.New("tree arrays differ in length")
	}
	for i := range n {
		l, r := t.ChildrenLeft[i], t.ChildrenRight[i]
		if l == leaf {
			continue
		}
		if l <= i || l >= n || r <= i || r >= n {
			return fmt.Errorf("node %d has out-of-order children %d/%d", i, l, r)
		}
		if width > 0 && (t.Feature[i] < 0 || t.Feature[i] >= width) {
			return fmt.Errorf("node %d splits on feature %d outside 0..%d", i, t.Feature[i], width-1)
		}
	}
	return nil
}

func (t *Tree) predict(x []float64) float64 {
	node := 0
	for t.ChildrenLeft[node] != leaf {
		if x[t.Feature[node]] <= t.Threshold[node] {
			node = t.ChildrenLeft[node]
		} else {
			node = t.ChildrenRight[node]
		}
	}
	return t.Value[node]
}

// Forest averages its trees.
type Forest struct {
	Trees []Tree `json:"trees"`
	width int
}

func (f *Forest) Predict(x []float64) (float64, error) {
	if len(f.Trees) == 0 {
		return 0, errors.New("forest has no trees")
	}
	if f.width > 0 && len(x) != f.width {
		return 0, fmt.Errorf("forest expects %d values, got %d", f.width, len(x))
	}
	var sum float64
	for i := range f.Trees {
		sum += f.Trees[i].predict(x)
	}
	return sum / float64(len(f.Trees)), nil
}
