package logger

import (
	"log"
	"os"
)

func New(path string) *log.Logger {
	if len(path) == 0 {
		return log.New(os.Stdout, "UART ", log.Ldate|log.Ltime|log.Lshortfile)
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0666)
	if err != nil {
		log.Fatal(err)
	}
	l := log.New(f, "UART ", log.Ldate|log.Ltime|log.Lshortfile)
	l.Printf("Initializing uartctl.log")
	return l
}
