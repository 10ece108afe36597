package main

import "ame/internal/ame"

func main() {
	ame.Main()
}
