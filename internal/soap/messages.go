package soap

import (
	"github.com/rezonia/afipws/internal/model"
)

// Messages collects the entries named item inside container, reading code
// and description from codeTag and descTag. When both tags are empty the
// item text itself is the description. An absent container yields nil.
func Messages(n *Node, container, item, codeTag, descTag string) []model.Message {
	list := n
	if container != "" {
		list = n.Find(container)
	}
	if !list.Exists() {
		return nil
	}

	var out []model.Message
	for _, entry := range list.All(item) {
		if codeTag == "" && descTag == "" {
			if text := entry.Text(); text != "" {
				out = append(out, model.Message{Description: text})
			}
			continue
		}
		msg := model.Message{
			Code:        entry.Text(codeTag),
			Description: entry.Text(descTag),
		}
		if msg.Code != "" || msg.Description != "" {
			out = append(out, msg)
		}
	}
	return out
}

// ServerStatus reads appserver/dbserver/authserver anywhere below n
func ServerStatus(n *Node) model.ServerStatus {
	return model.ServerStatus{
		AppServer:  n.Find("appserver").Text(),
		DBServer:   n.Find("dbserver").Text(),
		AuthServer: n.Find("authserver").Text(),
	}
}

// Parameters reads a lookup table, like Messages but keeping entries with an
// empty description
func Parameters(n *Node, container, item, codeTag, descTag string) []model.Parameter {
	list := n.Find(container)
	if !list.Exists() {
		return nil
	}
	var out []model.Parameter
	for _, entry := range list.All(item) {
		out = append(out, model.Parameter{
			Code:        entry.Text(codeTag),
			Description: entry.Text(descTag),
		})
	}
	return out
}
