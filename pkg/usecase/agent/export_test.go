package agent

var RunLoop = runLoop
