package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"

	"chatorder-backend/catalog"
	"chatorder-backend/config"
	"chatorder-backend/database"
	"chatorder-backend/logic"
	"chatorder-backend/repositories"
	"chatorder-backend/utils"
	"chatorder-backend/utils/version"
)

// 目录导入工具：校验 YAML 目录，写入 postgres
func main() {
	configPath := flag.String("config", "./config/config.yaml", "config file")
	file := flag.String("file", "", "catalog yaml, defaults to catalog.file in config")
	dryRun := flag.Bool("dry-run", false, "only validate and print the catalog")
	showVersion := flag.Bool("version", false, "print version")
	flag.Parse()

	if *showVersion {
		fmt.Print(version.PrintVersion())
		return
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		panic(err)
	}
	utils.SetupLogger(cfg.Log)

	path := *file
	if path == "" {
		path = cfg.Catalog.File
	}
	data, err := os.ReadFile(path)
	if err != nil {
		logrus.WithError(err).Fatal("❌ 读取目录文件失败")
	}
	products, err := catalog.ParseYAML(data)
	if err != nil {
		logrus.WithError(err).Fatal("❌ 目录文件格式错误")
	}

	// 用索引做一遍和线上相同的校验
	index := catalog.NewIndex()
	skipped := index.Rebuild(products)
	logrus.WithFields(logrus.Fields{"parsed": len(products), "valid": index.Len(), "skipped": skipped}).Info("📦 目录校验完成")

	if *dryRun {
		for _, p := range index.Products() {
			fmt.Printf("%-50s %s\n", p.ID, logic.PriceLabel(p))
		}
		return
	}
	if cfg.Database.Driver != "postgres" {
		logrus.Fatal("❌ 导入需要 postgres，内存存储请直接在 catalog.file 里配置目录")
	}

	db, err := database.InitDB(cfg.Database)
	if err != nil {
		panic(err)
	}
	if err := repositories.NewProductRepository(db).SyncProducts(index.Products()); err != nil {
		logrus.WithError(err).Fatal("❌ 写入商品失败")
	}
	logrus.WithField("count", index.Len()).Info("✅ 目录已导入")
}
