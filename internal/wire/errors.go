package wire

import "errors"

var (
	// ErrInvalidFrameSize 表示发送方拒绝发送长度非正或超过上限的帧，此时未写出任何字节。
	ErrInvalidFrameSize = errors.New("wire: frame size out of range")
	// ErrCorruptHeader 表示收到的帧头长度非法，帧体未被读取。
	ErrCorruptHeader = errors.New("wire: corrupt frame header")
	// ErrTruncated 表示对端在声明长度到达之前关闭了连接。
	ErrTruncated = errors.New("wire: frame truncated")
	// ErrSinkFailed 表示写入目标失败；帧体已被完整读出，通道仍可继续使用。
	ErrSinkFailed = errors.New("wire: destination write failed")
	// ErrShortSource 表示数据源比声明的长度短，通道已不可用。
	ErrShortSource = errors.New("wire: source shorter than declared size")
	// ErrLineTooLong 表示文本消息超过 MaxLineSize。
	ErrLineTooLong = errors.New("wire: message exceeds size limit")
	// ErrInvalidMessage 表示待发送的文本消息内含 NUL 字节。
	ErrInvalidMessage = errors.New("wire: message contains NUL byte")
	// ErrSourceUnavailable 表示待发送的文件无法打开或不是普通文件，此时未写出任何字节。
	ErrSourceUnavailable = errors.New("wire: source unavailable")
)

// RemoteError 表示对端用 ERROR 文本消息代替了期望的帧。
type RemoteError struct {
	Message string
}

func (e *RemoteError) Error() string {
	return "wire: peer refused transfer: " + e.Message
}

// Recoverable 判断一次传输失败后通道是否仍处于对齐状态，可以继续下一条命令。
func Recoverable(err error) bool {
	if err == nil {
		return true
	}
	var remote *RemoteError
	if errors.As(err, &remote) {
		return true
	}
	return errors.Is(err, ErrSinkFailed) ||
		errors.Is(err, ErrInvalidFrameSize) ||
		errors.Is(err, ErrSourceUnavailable)
}
