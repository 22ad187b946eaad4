package witness

import "errors"

// errors returned by witness and log sink operations, always wrapped together with the cause,
// so both errors.Is(err, ErrLogWrite) and errors.Is(err, fs.ErrClosed) work.
// Persistence failures come from store as store.ErrChannelUnreachable or store.ErrQueryRejected.
var (
	ErrLogDirCreate      = errors.New("can't create log directory")
	ErrLogFileCreate     = errors.New("can't create log file")
	ErrLogWrite          = errors.New("can't write log")
	ErrLogDuplicate      = errors.New("can't duplicate log handle")
	ErrCommandsSerialize = errors.New("can't serialize project commands")
	ErrAlreadyFinished   = errors.New("job already finished")
)
