package main

import (
	"errors"
	"io/fs"
	"log"
	"os"

	"github.com/joho/godotenv"
)

func main() {
	// 读取当前目录下的.env，GOSTA_*环境变量可以替代命令行参数
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Fatalf("无法读取.env文件: %v", err)
	}

	// 创建CLI应用
	app := createCliApp()

	// 运行应用
	err := app.Run(os.Args)
	if err != nil {
		log.Fatal(err)
	}
}
