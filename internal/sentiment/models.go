package sentiment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/LJTian/SentimentHub/internal/collector"
)

// ErrModelLoad 模型文件缺失或损坏，本轮采集必须中止
var ErrModelLoad = errors.New("sentiment model load failed")

// Models 一对已加载的向量化器与分类器
type Models struct {
	Vectorizer *Vectorizer
	Classifier *Classifier
}

func NewModels(vec *Vectorizer, clf *Classifier) (*Models, error) {
	if vec == nil || clf == nil {
		return nil, fmt.Errorf("%w: missing vectorizer or classifier", ErrModelLoad)
	}
	if vec.Dim() != clf.Features() {
		return nil, fmt.Errorf("%w: vectorizer has %d features, classifier expects %d", ErrModelLoad, vec.Dim(), clf.Features())
	}
	return &Models{Vectorizer: vec, Classifier: clf}, nil
}

// Predict 只使用标题计算特征
func (m *Models) Predict(title string) string {
	return m.Classifier.Predict(m.Vectorizer.Transform(title))
}

// LoadModels 读取并校验两份模型文件
func LoadModels(ctx context.Context, opener Opener, vecURI, clfURI string) (*Models, error) {
	var va VectorizerArtifact
	if err := readJSON(ctx, opener, vecURI, &va); err != nil {
		return nil, err
	}
	vec, err := NewVectorizer(va)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrModelLoad, vecURI, err)
	}

	var ca ClassifierArtifact
	if err := readJSON(ctx, opener, clfURI, &ca); err != nil {
		return nil, err
	}
	clf, err := NewClassifier(ca)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrModelLoad, clfURI, err)
	}

	m, err := NewModels(vec, clf)
	if err != nil {
		return nil, err
	}
	log.Printf("sentiment models loaded: vectorizer=%s(%s) classifier=%s(%s) features=%d",
		vecURI, vec.Version(), clfURI, clf.Version(), vec.Dim())
	return m, nil
}

func readJSON(ctx context.Context, opener Opener, uri string, dst any) error {
	rc, err := opener.Open(ctx, uri)
	if err != nil {
		return fmt.Errorf("%w: open %s: %w", ErrModelLoad, uri, err)
	}
	defer rc.Close()
	if err := json.NewDecoder(rc).Decode(dst); err != nil {
		return fmt.Errorf("%w: decode %s: %v", ErrModelLoad, uri, err)
	}
	return nil
}

// Loader 进程内缓存首次成功加载的模型；失败不缓存，下一轮重试
type Loader struct {
	opener Opener
	vecURI string
	clfURI string

	mu     sync.Mutex
	models *Models
}

func NewLoader(opener Opener, vecURI, clfURI string) *Loader {
	return &Loader{opener: opener, vecURI: vecURI, clfURI: clfURI}
}

func (l *Loader) Load(ctx context.Context) (*Models, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.models != nil {
		return l.models, nil
	}
	m, err := LoadModels(ctx, l.opener, l.vecURI, l.clfURI)
	if err != nil {
		return nil, err
	}
	l.models = m
	return m, nil
}

// Classify 为每篇文章打上情感标签，输出与输入等长且顺序一致
func Classify(articles []collector.Article, m *Models) []collector.Article {
	out := make([]collector.Article, len(articles))
	for i, a := range articles {
		a.Sentiment = m.Predict(a.Title)
		out[i] = a
	}
	return out
}
