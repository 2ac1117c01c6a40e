// Duplicate Google Drive folders with their comments
package main

import (
	"github.com/rclone/drivedup/cmd"
)

func main() {
	cmd.Main()
}
