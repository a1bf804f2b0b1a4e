package sentiment

import "fmt"

// ClassifierArtifact 线性分类器（逻辑回归、线性 SVM、朴素贝叶斯导出后均为此形式）
type ClassifierArtifact struct {
	Format    string      `json:"format"`
	Version   string      `json:"version"`
	Classes   []string    `json:"classes"`
	Coef      [][]float64 `json:"coef"`
	Intercept []float64   `json:"intercept"`
}

type Classifier struct {
	version   string
	classes   []string
	coef      [][]float64
	intercept []float64
}

func NewClassifier(a ClassifierArtifact) (*Classifier, error) {
	if a.Format != "" && a.Format != "linear" {
		return nil, fmt.Errorf("classifier: unsupported format %q", a.Format)
	}
	if len(a.Classes) < 2 {
		return nil, fmt.Errorf("classifier: need at least 2 classes, got %d", len(a.Classes))
	}
	for _, c := range a.Classes {
		if !IsLabel(c) {
			return nil, fmt.Errorf("classifier: unknown class %q", c)
		}
	}

	rows := len(a.Classes)
	// 二分类只保存一行系数
	if len(a.Classes) == 2 {
		rows = 1
	}
	if len(a.Coef) != rows {
		return nil, fmt.Errorf("classifier: %d coef rows for %d classes", len(a.Coef), len(a.Classes))
	}
	if len(a.Intercept) != rows {
		return nil, fmt.Errorf("classifier: %d intercepts for %d coef rows", len(a.Intercept), rows)
	}
	width := len(a.Coef[0])
	for i, row := range a.Coef {
		if len(row) != width {
			return nil, fmt.Errorf("classifier: coef row %d has %d weights, want %d", i, len(row), width)
		}
	}

	return &Classifier{
		version:   a.Version,
		classes:   a.Classes,
		coef:      a.Coef,
		intercept: a.Intercept,
	}, nil
}

// Features 期望的特征维度
func (c *Classifier) Features() int { return len(c.coef[0]) }

func (c *Classifier) Version() string { return c.version }

func (c *Classifier) decision(row int, x Vector) float64 {
	s := c.intercept[row]
	w := c.coef[row]
	for idx, val := range x {
		if idx < len(w) {
			s += w[idx] * val
		}
	}
	return s
}

// Predict 返回得分最高的标签，平分时取靠前的类别
func (c *Classifier) Predict(x Vector) string {
	if len(c.coef) == 1 {
		if c.decision(0, x) > 0 {
			return c.classes[1]
		}
		return c.classes[0]
	}

	best := 0
	bestScore := c.decision(0, x)
	for i := 1; i < len(c.coef); i++ {
		if s := c.decision(i, x); s > bestScore {
			best, bestScore = i, s
		}
	}
	return c.classes[best]
}
