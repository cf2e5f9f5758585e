package parse

import "encoding/json"

type jsonNode struct {
	Type     NodeType `json:"type"`
	Value    string   `json:"value,omitempty"`
	Title    string   `json:"title,omitempty"`
	From     int      `json:"from"`
	To       int      `json:"to"`
	Children []*Node  `json:"children,omitempty"`
}

// MarshalJSON encodes the subtree rooted at n. Parent references are implied
// by nesting.
func (n *Node) MarshalJSON() ([]byte, error) {
	return json.Marshal(jsonNode{n.Type, n.Value, n.Title, n.From, n.To, n.children})
}

// UnmarshalJSON decodes a subtree encoded by MarshalJSON and restores the
// parent references of the children.
func (n *Node) UnmarshalJSON(data []byte) error {
	var j jsonNode
	if err := json.Unmarshal(data, &j); err != nil {
		return err
	}
	*n = Node{Type: j.Type, Value: j.Value, Title: j.Title}
	n.From, n.To = j.From, j.To
	for _, ch := range j.Children {
		if ch == nil {
			continue
		}
		ch.parent = nil
		n.AddChild(ch)
	}
	return nil
}
