package logging

import "github.com/sirupsen/logrus"

// BaseFields 构建 action + 配置路径等基础字段，便于不同入口复用。
func BaseFields(action, configPath string) logrus.Fields {
	return logrus.Fields{
		"action":     action,
		"configPath": configPath,
	}
}

// SessionFields 标识一条连接：节点角色、会话 ID 与对端地址。
func SessionFields(node, session, remote string) logrus.Fields {
	return logrus.Fields{
		"node":    node,
		"session": session,
		"remote":  remote,
	}
}

// CommandFields 描述一次命令执行，target 为处理该文件的节点名（本地处理时为 hub 名）。
func CommandFields(command, categoryKey, target string) logrus.Fields {
	fields := logrus.Fields{"command": command}
	if categoryKey != "" {
		fields["category"] = categoryKey
	}
	if target != "" {
		fields["target"] = target
	}
	return fields
}
