// Package category 描述文件类别（c/pdf/txt/zip）与归属节点之间的映射，并提供统一的注册入口。
//
// 类别只由文件扩展名决定：
//  1. .c 文件保存在 hub 自身的根目录下；
//  2. .pdf/.txt/.zip 各自由一个专用存储节点保存；
//  3. 未注册的扩展名没有路由目标，调用方需要把它当作不可路由处理。
//
// 类别在 init() 中通过 MustRegister 注册，List 按固定 Rank 输出，
// dispfnames 的分组顺序即来源于此。
package category
