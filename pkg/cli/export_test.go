package cli

var RunWith = run
