package room

// Participant 보드에 접속 중인 사용자의 presence 레코드
type Participant struct {
	OdID    string  `json:"odId"`
	OdName  string  `json:"odName"`
	OdColor string  `json:"odColor"`
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
}

// cursorPalette 커서 색상 팔레트 (클라이언트와 동일한 14색)
var cursorPalette = [...]string{
	"#ef4444", // red
	"#f97316", // orange
	"#f59e0b", // amber
	"#84cc16", // lime
	"#22c55e", // green
	"#14b8a6", // teal
	"#06b6d4", // cyan
	"#3b82f6", // blue
	"#6366f1", // indigo
	"#8b5cf6", // violet
	"#a855f7", // purple
	"#d946ef", // fuchsia
	"#ec4899", // pink
	"#f43f5e", // rose
}

// DisplayColor identity에서 색상을 결정적으로 파생한다.
// 같은 identity는 재접속해도 항상 같은 색을 받는다.
func DisplayColor(odID string) string {
	var hash int32
	for _, r := range odID {
		hash = r + ((hash << 5) - hash)
	}
	idx := int(hash) % len(cursorPalette)
	if idx < 0 {
		idx = -idx
	}
	return cursorPalette[idx]
}
