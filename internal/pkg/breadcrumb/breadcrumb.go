package breadcrumb

// Entry 面包屑中的一级：展示名 + 可跳转路径。
type Entry struct {
	Name string `json:"name"`
	Path string `json:"path"`
}

// Trail 有序的导航轨迹。
//
// 页面进入时整体替换（Replace），页面内下钻时追加（Append）。
// 这里不做去重和环检测：调用方必须在每次页面边界调用 Replace，
// 否则同一会话内反复 Append 会让轨迹无限增长。
type Trail struct {
	entries []Entry
}

// NewTrail 创建一条空轨迹。
func NewTrail() *Trail {
	return &Trail{}
}

// Replace 用新轨迹整体替换当前轨迹。
func (t *Trail) Replace(entries []Entry) {
	t.entries = make([]Entry, len(entries))
	copy(t.entries, entries)
}

// Append 在轨迹末尾追加一级。
func (t *Trail) Append(entry Entry) {
	t.entries = append(t.entries, entry)
}

// Entries 返回轨迹的快照副本。
func (t *Trail) Entries() []Entry {
	out := make([]Entry, len(t.entries))
	copy(out, t.entries)
	return out
}

// Current 返回最后一级（当前页标记，渲染时不可点击）。
// 轨迹为空时返回零值和 false。
func (t *Trail) Current() (Entry, bool) {
	if len(t.entries) == 0 {
		return Entry{}, false
	}
	return t.entries[len(t.entries)-1], true
}

// Len 返回轨迹层级数。
func (t *Trail) Len() int {
	return len(t.entries)
}
