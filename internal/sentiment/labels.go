package sentiment

const (
	Positive = "positive"
	Neutral  = "neutral"
	Negative = "negative"
)

// Labels 固定的三个情感标签，也是 RSS 分类页的顺序
var Labels = []string{Positive, Neutral, Negative}

func IsLabel(s string) bool {
	switch s {
	case Positive, Neutral, Negative:
		return true
	}
	return false
}
