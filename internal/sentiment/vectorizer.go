package sentiment

import (
	"fmt"
	"math"
	"regexp"
	"strings"
)

// VectorizerArtifact TF-IDF 向量化模型的序列化格式
type VectorizerArtifact struct {
	Format      string         `json:"format"`
	Version     string         `json:"version"`
	Vocabulary  map[string]int `json:"vocabulary"`
	IDF         []float64      `json:"idf"`
	Lowercase   bool           `json:"lowercase"`
	NgramRange  [2]int         `json:"ngram_range"`
	SublinearTF bool           `json:"sublinear_tf"`
	Norm        string         `json:"norm"`
	StopWords   []string       `json:"stop_words"`
}

// 至少两个字符的单词，与常见 TF-IDF 实现的默认切词规则一致
var tokenPattern = regexp.MustCompile(`[\p{L}\p{N}_]{2,}`)

// Vector 稀疏特征向量：特征下标 -> 权重
type Vector map[int]float64

type Vectorizer struct {
	version   string
	vocab     map[string]int
	idf       []float64
	lowercase bool
	minN      int
	maxN      int
	sublinear bool
	norm      string
	stop      map[string]struct{}
}

func NewVectorizer(a VectorizerArtifact) (*Vectorizer, error) {
	if a.Format != "" && a.Format != "tfidf" {
		return nil, fmt.Errorf("vectorizer: unsupported format %q", a.Format)
	}
	if len(a.Vocabulary) == 0 {
		return nil, fmt.Errorf("vectorizer: empty vocabulary")
	}
	if len(a.IDF) != len(a.Vocabulary) {
		return nil, fmt.Errorf("vectorizer: idf has %d weights for %d terms", len(a.IDF), len(a.Vocabulary))
	}
	for term, idx := range a.Vocabulary {
		if idx < 0 || idx >= len(a.IDF) {
			return nil, fmt.Errorf("vectorizer: term %q index %d out of range", term, idx)
		}
	}

	minN, maxN := a.NgramRange[0], a.NgramRange[1]
	if minN <= 0 {
		minN = 1
	}
	if maxN < minN {
		maxN = minN
	}
	switch a.Norm {
	case "", "l2", "none":
	default:
		return nil, fmt.Errorf("vectorizer: unsupported norm %q", a.Norm)
	}

	stop := make(map[string]struct{}, len(a.StopWords))
	for _, w := range a.StopWords {
		stop[w] = struct{}{}
	}

	return &Vectorizer{
		version:   a.Version,
		vocab:     a.Vocabulary,
		idf:       a.IDF,
		lowercase: a.Lowercase,
		minN:      minN,
		maxN:      maxN,
		sublinear: a.SublinearTF,
		norm:      a.Norm,
		stop:      stop,
	}, nil
}

// Dim 特征维度
func (v *Vectorizer) Dim() int { return len(v.idf) }

func (v *Vectorizer) Version() string { return v.version }

func (v *Vectorizer) tokens(text string) []string {
	if v.lowercase {
		text = strings.ToLower(text)
	}
	raw := tokenPattern.FindAllString(text, -1)
	if len(v.stop) == 0 {
		return raw
	}
	out := raw[:0]
	for _, t := range raw {
		if _, ok := v.stop[t]; !ok {
			out = append(out, t)
		}
	}
	return out
}

// Transform 将一段文本转换为 TF-IDF 向量，未登录词被忽略
func (v *Vectorizer) Transform(text string) Vector {
	toks := v.tokens(text)
	counts := make(map[int]float64)
	for n := v.minN; n <= v.maxN; n++ {
		for i := 0; i+n <= len(toks); i++ {
			gram := strings.Join(toks[i:i+n], " ")
			if idx, ok := v.vocab[gram]; ok {
				counts[idx]++
			}
		}
	}

	var sq float64
	for idx, tf := range counts {
		if v.sublinear {
			tf = 1 + math.Log(tf)
		}
		w := tf * v.idf[idx]
		counts[idx] = w
		sq += w * w
	}
	if v.norm == "l2" && sq > 0 {
		n := math.Sqrt(sq)
		for idx := range counts {
			counts[idx] /= n
		}
	}
	return Vector(counts)
}
